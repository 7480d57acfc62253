package filesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/username/clearinghouse/src/logger"
)

// S3 is an object-store backed Source. Pending files live under the inbound
// prefix; relocation uploads the local copy under the processed prefix and
// deletes the inbound object, since object stores have no server-side rename.
type S3 struct {
	client          *s3.Client
	bucket          string
	inboundPrefix   string
	processedPrefix string
}

// S3Config carries the settings needed to reach the bucket. Endpoint and
// static credentials are optional; when empty the SDK's default chain is used.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKey       string
	SecretKey       string
	InboundPrefix   string
	ProcessedPrefix string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{
		client:          client,
		bucket:          cfg.Bucket,
		inboundPrefix:   normalizePrefix(cfg.InboundPrefix),
		processedPrefix: normalizePrefix(cfg.ProcessedPrefix),
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (s *S3) List(ctx context.Context) ([]string, error) {
	var names []string
	var continuation *string

	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.inboundPrefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.inboundPrefix, err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			names = append(names, path.Base(key))
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	return names, nil
}

func (s *S3) Fetch(ctx context.Context, name, localPath string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.inboundPrefix + name),
	})
	if err != nil {
		return fmt.Errorf("fetch s3 object %s: %w", name, err)
	}
	defer out.Body.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("fetch %s: create buffer: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, out.Body); err != nil {
		return fmt.Errorf("fetch %s: copy: %w", name, err)
	}
	return nil
}

func (s *S3) Relocate(ctx context.Context, name, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("relocate %s: open local copy: %w", name, err)
	}
	defer src.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.processedPrefix + name),
		Body:   src,
	})
	if err != nil {
		return fmt.Errorf("relocate %s: upload phase: %w", name, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.inboundPrefix + name),
	})
	if err != nil {
		return fmt.Errorf("relocate %s: delete phase: %w", name, err)
	}

	logger.L.Info("Relocated object to processed prefix", "filename", name, "bucket", s.bucket)
	return nil
}
