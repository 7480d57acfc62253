package filesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/username/clearinghouse/src/logger"
)

// Local is a directory-backed Source: files are dropped into an inbound
// directory and moved to a processed directory once ingested.
type Local struct {
	inboundPath   string
	processedPath string
}

func NewLocal(inboundPath, processedPath string) *Local {
	return &Local{inboundPath: inboundPath, processedPath: processedPath}
}

func (l *Local) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.inboundPath)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.inboundPath, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l *Local) Fetch(ctx context.Context, name, localPath string) error {
	src, err := os.Open(filepath.Join(l.inboundPath, name))
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("fetch %s: create buffer: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("fetch %s: copy: %w", name, err)
	}
	return nil
}

// Relocate moves the inbound file to the processed directory. A plain rename
// fails when the two directories sit on different volumes, so when the
// already-fetched local copy is available it is written to the destination
// and the inbound original removed: an explicit two-phase fallback whose
// partial failure names the phase that broke.
func (l *Local) Relocate(ctx context.Context, name, localPath string) error {
	if err := os.MkdirAll(l.processedPath, 0o755); err != nil {
		return fmt.Errorf("relocate %s: create processed dir: %w", name, err)
	}

	inboundFile := filepath.Join(l.inboundPath, name)
	processedFile := filepath.Join(l.processedPath, name)

	if localPath != "" {
		if _, err := os.Stat(localPath); err == nil {
			if err := copyFile(localPath, processedFile); err != nil {
				return fmt.Errorf("relocate %s: upload phase: %w", name, err)
			}
			if err := os.Remove(inboundFile); err != nil {
				return fmt.Errorf("relocate %s: delete phase: %w", name, err)
			}
			logger.L.Info("Uploaded local copy to processed directory and removed inbound original", "filename", name)
			return nil
		}
	}

	// Remove an existing same-named processed file to avoid a rename conflict.
	if _, err := os.Stat(processedFile); err == nil {
		if err := os.Remove(processedFile); err != nil {
			return fmt.Errorf("relocate %s: remove existing destination: %w", name, err)
		}
	}

	if err := os.Rename(inboundFile, processedFile); err != nil {
		return fmt.Errorf("relocate %s: rename: %w", name, err)
	}
	logger.L.Info("Moved file to processed directory", "filename", name)
	return nil
}

func copyFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}
