// Package parser provides the parsing collaborators that turn event
// log files (XES, CSV, XLSX, Parquet) into the trace model the engine
// consumes. The engine itself never re-validates trace data; malformed
// rows are handled here.
package parser

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/proclens/proclens/internal/model"
	apperrors "github.com/proclens/proclens/pkg/errors"
)

// Event is one parsed activity occurrence. The timestamp is optional:
// when present it establishes occurrence order within a case,
// otherwise arrival order is preserved.
type Event struct {
	CaseID    string
	Activity  model.Activity
	Timestamp int64 // nanoseconds since Unix epoch, 0 when absent
}

// Parser reads events from r and sends them to out. Implementations
// must respect context cancellation and must not retain references to
// the output channel after returning. The caller closes the channel.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, out chan<- Event) error
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatXES
	FormatCSV
	FormatXLSX
	FormatParquet
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatXES:
		return "xes"
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	case FormatParquet:
		return "parquet"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "xes":
		return FormatXES
	case "csv":
		return FormatCSV
	case "xlsx", "excel":
		return FormatXLSX
	case "parquet", "pq":
		return FormatParquet
	default:
		return FormatUnknown
	}
}

// DetectFormat guesses the format from a file path.
func DetectFormat(path string) Format {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Config holds common parser configuration.
type Config struct {
	// CaseIDColumn names the case ID column (tabular formats).
	CaseIDColumn string

	// ActivityColumn names the activity column (tabular formats).
	ActivityColumn string

	// TimestampColumn names the timestamp column (tabular formats).
	TimestampColumn string

	// Delimiter is the CSV field delimiter.
	Delimiter rune
}

// DefaultConfig returns the conventional process mining column names.
func DefaultConfig() Config {
	return Config{
		CaseIDColumn:    "case_id",
		ActivityColumn:  "activity",
		TimestampColumn: "timestamp",
		Delimiter:       ',',
	}
}

// New creates a parser for the given format.
func New(format Format, cfg Config) (Parser, error) {
	switch format {
	case FormatXES:
		return NewXESParser(), nil
	case FormatCSV:
		return NewCSVParser(cfg), nil
	case FormatXLSX:
		return NewXLSXParser(cfg), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Collect drains events from a parser run into an EventLog, grouping
// by case and preserving occurrence order. When timestamps are
// present, events within a case are stably re-ordered by them.
func Collect(ctx context.Context, p Parser, r io.Reader) (*model.EventLog, error) {
	events := make(chan Event, 256)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		return p.Parse(ctx, r, events)
	})

	byCase := make(map[string][]Event)
	var caseOrder []string
	g.Go(func() error {
		for ev := range events {
			if _, seen := byCase[ev.CaseID]; !seen {
				caseOrder = append(caseOrder, ev.CaseID)
			}
			byCase[ev.CaseID] = append(byCase[ev.CaseID], ev)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log := &model.EventLog{Traces: make([]model.Trace, 0, len(caseOrder))}
	for _, caseID := range caseOrder {
		caseEvents := byCase[caseID]
		sort.SliceStable(caseEvents, func(i, j int) bool {
			return caseEvents[i].Timestamp < caseEvents[j].Timestamp
		})
		trace := model.Trace{
			CaseID:     caseID,
			Activities: make([]model.Activity, 0, len(caseEvents)),
		}
		for _, ev := range caseEvents {
			trace.Activities = append(trace.Activities, ev.Activity)
		}
		log.Traces = append(log.Traces, trace)
	}
	return log, nil
}

// Load opens a file, detects its format, and collects it into an
// EventLog. Parquet inputs go through the DuckDB reader, which needs
// the path rather than a stream. Sentinel errors from the parsers are
// wrapped into coded errors here, at the boundary the engine sees.
func Load(ctx context.Context, path string, cfg Config) (*model.EventLog, error) {
	format := DetectFormat(path)
	if format == FormatParquet {
		return LoadParquet(ctx, path, cfg)
	}

	p, err := New(format, cfg)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidFormat, "unsupported input format").
			WithContext("path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.FileNotFound(path)
		}
		return nil, apperrors.Wrapf(err, apperrors.CodeFileNotFound, "open %s", path)
	}
	defer f.Close()

	log, err := Collect(ctx, p, f)
	if err != nil {
		return nil, coded(err, format, path)
	}
	return log, nil
}

// coded maps parser sentinels onto coded errors. Errors already
// carrying a code pass through unchanged.
func coded(err error, format Format, path string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrContextCanceled):
		return apperrors.Wrap(err, apperrors.CodeContextCanceled, "parsing canceled")
	case errors.Is(err, ErrInvalidXES), errors.Is(err, ErrInvalidCSV):
		return apperrors.ParseError(format.String(), 0, err)
	default:
		return apperrors.Wrap(err, apperrors.CodeParseFailed, format.String()+" parse failed").
			WithContext("path", path)
	}
}
