// Package ingestion runs the parse-and-persist stage for a single feed file.
package ingestion

import (
	"context"
	"fmt"

	"github.com/username/clearinghouse/src/alerting"
	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/parsers"
	"github.com/username/clearinghouse/src/store"
)

// IngestionError marks a failure that is fatal for the whole file: either the
// format was not recognized or the persistence batch could not be committed.
// Row-level parse failures never surface as an IngestionError.
type IngestionError struct {
	Filename string
	Stage    string
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of %s failed at %s: %v", e.Filename, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Result summarizes one file's ingestion.
type Result struct {
	Format   parsers.Format
	Ingested int
	Skipped  int
}

// Pipeline ties the pure parsers to the trade store. It has no knowledge of
// where file bytes came from; transport is the caller's concern.
type Pipeline struct {
	store *store.TradeStore
	sink  alerting.Sink
}

// NewPipeline creates an ingestion pipeline. sink may be nil to disable
// data quality alerts.
func NewPipeline(tradeStore *store.TradeStore, sink alerting.Sink) *Pipeline {
	return &Pipeline{store: tradeStore, sink: sink}
}

// Ingest detects the file format, parses the content and persists all parsed
// records as one batch. Zero parseable rows is a success with count 0; a
// persistence error rolls back the whole batch and is returned as an
// *IngestionError.
func (p *Pipeline) Ingest(ctx context.Context, content []byte, filename string) (*Result, error) {
	text := string(content)

	format, err := parsers.Detect(text)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Stage: "detect", Err: err}
	}

	records, skipped, err := parsers.Parse(text, format)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Stage: "parse", Err: err}
	}

	count, err := p.store.InsertBatch(ctx, records)
	if err != nil {
		return nil, &IngestionError{Filename: filename, Stage: "persist", Err: err}
	}

	logger.L.Info("File ingested", "filename", filename, "format", string(format),
		"ingested", count, "skippedRows", skipped)

	if skipped > 0 && p.sink != nil {
		// Best-effort: a failed data quality alert never fails the ingestion.
		alerting.DataQuality(p.sink, filename, []string{
			fmt.Sprintf("%d rows skipped during parsing", skipped),
		})
	}

	return &Result{Format: format, Ingested: count, Skipped: skipped}, nil
}
