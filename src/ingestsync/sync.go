// Package ingestsync orchestrates a full pass over the remote drop location:
// list pending files, ingest each one, relocate on success. One file's
// failure never aborts the batch.
package ingestsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/username/clearinghouse/src/alerting"
	"github.com/username/clearinghouse/src/filesource"
	"github.com/username/clearinghouse/src/ingestion"
	"github.com/username/clearinghouse/src/logger"
)

// Only these extensions are recognized as feed files; anything else in the
// drop location is left untouched.
var feedExtensions = map[string]bool{
	".csv": true,
	".txt": true,
	".psv": true,
}

// Outcome is the result of one file's processing.
type Outcome struct {
	File     string `json:"file"`
	Ingested int    `json:"ingested"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// Report aggregates a full sync run.
type Report struct {
	Listed   int       `json:"listed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Succeeded counts files that were ingested and relocated.
func (r *Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Error == "" {
			n++
		}
	}
	return n
}

// Failed counts files that hit a fetch, parse, persist or relocate error.
func (r *Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Syncer runs the fetch → ingest → relocate loop against a Source.
type Syncer struct {
	source   filesource.Source
	pipeline *ingestion.Pipeline
	sink     alerting.Sink
}

func NewSyncer(source filesource.Source, pipeline *ingestion.Pipeline, sink alerting.Sink) *Syncer {
	return &Syncer{source: source, pipeline: pipeline, sink: sink}
}

// SyncAll processes every pending feed file sequentially. Files are isolated:
// a failure alerts and moves on to the next file. Listing failure is the only
// error that aborts the run.
func (s *Syncer) SyncAll(ctx context.Context) (*Report, error) {
	names, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}

	report := &Report{Listed: len(names)}
	logger.L.Info("Source sync started", "pendingFiles", len(names))

	for _, name := range names {
		if !feedExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		outcome := Outcome{File: name}
		result, err := s.processFile(ctx, name)
		if err != nil {
			logger.L.Error("Error processing file", "filename", name, "error", err)
			outcome.Error = err.Error()
			if s.sink != nil {
				alerting.IngestionFailure(s.sink, name, err.Error())
			}
		} else {
			outcome.Ingested = result.Ingested
			outcome.Skipped = result.Skipped
			logger.L.Info("Successfully processed file", "filename", name, "ingested", result.Ingested)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	logger.L.Info("Source sync finished", "processed", len(report.Outcomes),
		"succeeded", report.Succeeded(), "failed", report.Failed())
	return report, nil
}

// processFile handles one file end to end through a transient local buffer.
// The buffer is removed on every exit path.
func (s *Syncer) processFile(ctx context.Context, name string) (*ingestion.Result, error) {
	tmp, err := os.CreateTemp("", "clearinghouse-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create transient buffer: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := s.source.Fetch(ctx, name, tmpPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read transient buffer for %s: %w", name, err)
	}

	result, err := s.pipeline.Ingest(ctx, content, name)
	if err != nil {
		return nil, err
	}

	// Relocate using the already-fetched local copy to avoid a second remote
	// read. Until this succeeds the file remains pending and would be
	// ingested again on the next run.
	if err := s.source.Relocate(ctx, name, tmpPath); err != nil {
		return nil, err
	}

	return result, nil
}
