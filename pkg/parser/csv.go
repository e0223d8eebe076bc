package parser

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/proclens/proclens/internal/model"
	apperrors "github.com/proclens/proclens/pkg/errors"
)

// CSVParser parses delimited event data with case ID, activity, and
// timestamp columns. Rows missing a case ID or activity are skipped;
// unparseable timestamps fall back to row order.
type CSVParser struct {
	cfg Config
}

// NewCSVParser creates a new CSV parser.
func NewCSVParser(cfg Config) *CSVParser {
	return &CSVParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader, out chan<- Event) error {
	reader := csv.NewReader(r)
	reader.Comma = p.cfg.Delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return apperrors.ParseError("csv", 1, ErrInvalidCSV)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	caseIdx, ok := colMap[strings.ToLower(p.cfg.CaseIDColumn)]
	if !ok {
		return apperrors.MissingColumn(p.cfg.CaseIDColumn).WithCause(ErrMissingColumn)
	}
	actIdx, ok := colMap[strings.ToLower(p.cfg.ActivityColumn)]
	if !ok {
		return apperrors.MissingColumn(p.cfg.ActivityColumn).WithCause(ErrMissingColumn)
	}
	tsIdx, hasTS := colMap[strings.ToLower(p.cfg.TimestampColumn)]

	for {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Skip malformed rows; validation is this layer's concern.
			continue
		}
		if caseIdx >= len(record) || actIdx >= len(record) {
			continue
		}

		event := Event{
			CaseID:   strings.TrimSpace(record[caseIdx]),
			Activity: model.Activity(strings.TrimSpace(record[actIdx])),
		}
		if event.CaseID == "" || event.Activity == "" {
			continue
		}
		if hasTS && tsIdx < len(record) {
			if ts, tsErr := parseCSVTimestamp(record[tsIdx]); tsErr == nil {
				event.Timestamp = ts
			}
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return ErrContextCanceled
		}
	}
}

// parseCSVTimestamp tries the common timestamp layouts.
func parseCSVTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t.UnixNano(), nil
		}
		lastErr = err
	}
	return 0, apperrors.Wrapf(lastErr, apperrors.CodeInvalidTimestamp, "timestamp %q", value)
}
