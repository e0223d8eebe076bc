package parser

import (
	"context"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/proclens/proclens/internal/model"
	apperrors "github.com/proclens/proclens/pkg/errors"
)

// XLSXParser parses Excel workbooks with the same column contract as
// the CSV parser, reading the first sheet row by row.
type XLSXParser struct {
	cfg Config
}

// NewXLSXParser creates a new XLSX parser.
func NewXLSXParser(cfg Config) *XLSXParser {
	return &XLSXParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *XLSXParser) Parse(ctx context.Context, r io.Reader, out chan<- Event) error {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return err
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return ErrUnsupportedFormat
		}
		sheet = sheets[0]
	}

	rows, err := file.Rows(sheet)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		return apperrors.MissingColumn(p.cfg.CaseIDColumn).WithCause(ErrMissingColumn)
	}
	header, err := rows.Columns()
	if err != nil {
		return err
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

	for rows.Next() {
		select {
		case <-ctx.Done():
			return ErrContextCanceled
		default:
		}

		cols, err := rows.Columns()
		if err != nil || len(cols) == 0 {
			continue
		}
		if caseIdx >= len(cols) || actIdx >= len(cols) {
			continue
		}

		event := Event{
			CaseID:   strings.TrimSpace(cols[caseIdx]),
			Activity: model.Activity(strings.TrimSpace(cols[actIdx])),
		}
		if event.CaseID == "" || event.Activity == "" {
			continue
		}
		if hasTS && tsIdx < len(cols) {
			if ts, tsErr := parseCSVTimestamp(cols[tsIdx]); tsErr == nil {
				event.Timestamp = ts
			}
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return ErrContextCanceled
		}
	}

	return rows.Error()
}
