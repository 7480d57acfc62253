// Package parsers turns raw custodial feed files into normalized trade
// records. Two feed layouts are supported: a self-describing header CSV and a
// raw pipe-delimited numeric feed. Parsing is pure; no I/O happens here.
package parsers

import (
	"errors"
	"strings"

	"github.com/username/clearinghouse/src/models"
)

// Format identifies one of the supported feed layouts.
type Format string

const (
	FormatHeaderCSV     Format = "header_csv"
	FormatPipeDelimited Format = "pipe_delimited"
)

// ErrUnknownFormat is returned when a file matches neither feed layout.
// It is fatal for the whole file; there is no row-level recovery from it.
var ErrUnknownFormat = errors.New("unknown file format")

// Detect classifies file content by inspecting its first non-empty line.
// A pipe anywhere on that line wins, even if the line also contains commas:
// the pipe feed's fields may themselves embed commas in free-text columns.
func Detect(content string) (Format, error) {
	firstLine := ""
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if strings.TrimSpace(line) != "" {
			firstLine = line
			break
		}
	}

	switch {
	case strings.Contains(firstLine, "|"):
		return FormatPipeDelimited, nil
	case strings.Contains(firstLine, ",") && strings.Contains(firstLine, "TradeDate"):
		return FormatHeaderCSV, nil
	default:
		return "", ErrUnknownFormat
	}
}

// Parse dispatches to the parser for the given format. It returns the
// successfully parsed records and the number of rows that were skipped.
// Row-level malformation never fails the file; each bad row is logged and
// skipped so one broken line cannot discard a whole day's feed.
func Parse(content string, format Format) ([]models.TradeRecord, int, error) {
	switch format {
	case FormatHeaderCSV:
		records, skipped := parseHeaderCSV(content)
		return records, skipped, nil
	case FormatPipeDelimited:
		records, skipped := parsePipeDelimited(content)
		return records, skipped, nil
	default:
		return nil, 0, ErrUnknownFormat
	}
}
