// The worker polls the remote drop location on a schedule and runs the
// ingestion pipeline over every pending feed file.
package main

import (
	"context"
	"flag"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/username/clearinghouse/src/alerting"
	"github.com/username/clearinghouse/src/config"
	"github.com/username/clearinghouse/src/database"
	"github.com/username/clearinghouse/src/filesource"
	"github.com/username/clearinghouse/src/ingestion"
	"github.com/username/clearinghouse/src/ingestsync"
	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/store"
)

func buildSource(ctx context.Context) (filesource.Source, error) {
	if config.Cfg.SourceMode == "s3" {
		return filesource.NewS3(ctx, filesource.S3Config{
			Bucket:          config.Cfg.SourceBucket,
			Region:          config.Cfg.SourceRegion,
			Endpoint:        config.Cfg.SourceEndpoint,
			AccessKey:       config.Cfg.SourceAccessKey,
			SecretKey:       config.Cfg.SourceSecretKey,
			InboundPrefix:   config.Cfg.SourceInboundPath,
			ProcessedPrefix: config.Cfg.SourceProcessedPath,
		})
	}
	return filesource.NewLocal(config.Cfg.SourceInboundPath, config.Cfg.SourceProcessedPath), nil
}

func main() {
	once := flag.Bool("once", false, "run a single sync pass and exit")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Ingestion worker starting...", "sourceMode", config.Cfg.SourceMode)

	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	ctx := context.Background()

	source, err := buildSource(ctx)
	if err != nil {
		stdlog.Fatalf("failed to initialize file source: %v", err)
	}

	alertSink := alerting.NewService(config.Cfg.AlertServiceURL, config.Cfg.AlertAPIKey, config.Cfg.AlertTimeout)
	tradeStore := store.NewTradeStore(database.DB)
	pipeline := ingestion.NewPipeline(tradeStore, alertSink)
	syncer := ingestsync.NewSyncer(source, pipeline, alertSink)

	runSync := func() {
		report, err := syncer.SyncAll(ctx)
		if err != nil {
			logger.L.Error("Sync run failed", "error", err)
			return
		}
		logger.L.Info("Sync run completed", "listed", report.Listed,
			"succeeded", report.Succeeded(), "failed", report.Failed())
	}

	if *once {
		runSync()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(config.Cfg.SyncSchedule, runSync); err != nil {
		stdlog.Fatalf("invalid SYNC_SCHEDULE %q: %v", config.Cfg.SyncSchedule, err)
	}
	c.Start()
	logger.L.Info("Scheduler started", "schedule", config.Cfg.SyncSchedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L.Info("Shutting down worker...")
	<-c.Stop().Done()
}
