// Package export writes analysis results to JSON, CSV, and XLSX files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/proclens/proclens/pkg/classify"
	"github.com/proclens/proclens/pkg/matrix"
)

// Format is an output format for analysis results.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers the export format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format for %q (want .json, .csv, or .xlsx)", path)
}

// Report bundles everything a single analysis produced.
type Report struct {
	Source string           `json:"source,omitempty"`
	Matrix *matrix.Matrix   `json:"-"`
	Ratios matrix.Ratios    `json:"-"`
	Result *classify.Result `json:"classification"`
}

// jsonReport is the wire shape of a report.
type jsonReport struct {
	Source         string             `json:"source,omitempty"`
	Classification *classify.Result   `json:"classification"`
	Ratios         map[string]float64 `json:"ratios,omitempty"`
	Cells          []jsonCell         `json:"cells,omitempty"`
}

type jsonCell struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Temporal    string `json:"temporal"`
	Existential string `json:"existential"`
}

// WriteFile writes the report to path in the format implied by its
// extension.
func WriteFile(path string, rep Report) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(path, rep)
	default:
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		if format == FormatJSON {
			return WriteJSON(f, rep)
		}
		return WriteCSV(f, rep)
	}
}

// WriteJSON writes the full report as indented JSON.
func WriteJSON(w io.Writer, rep Report) error {
	out := jsonReport{
		Source:         rep.Source,
		Classification: rep.Result,
	}
	if len(rep.Ratios) > 0 {
		out.Ratios = make(map[string]float64, len(rep.Ratios))
		for cell, ratio := range rep.Ratios {
			key := cell.Temporal.String() + "/" + cell.Existential.String()
			out.Ratios[key] = ratio
		}
	}
	if rep.Matrix != nil {
		out.Cells = sortedCells(rep.Matrix)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteCSV writes the matrix cells as CSV rows, one pair per line.
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"from", "to", "temporal", "existential"}); err != nil {
		return err
	}
	if rep.Matrix != nil {
		for _, c := range sortedCells(rep.Matrix) {
			if err := cw.Write([]string{c.From, c.To, c.Temporal, c.Existential}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortedCells(m *matrix.Matrix) []jsonCell {
	cells := m.Cells()
	out := make([]jsonCell, 0, len(cells))
	for pair, cell := range cells {
		out = append(out, jsonCell{
			From:        string(pair.From),
			To:          string(pair.To),
			Temporal:    cell.Temporal.String(),
			Existential: cell.Existential.String(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// writeXLSX writes a workbook with Summary, Matrix, and Ratios sheets.
func writeXLSX(path string, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}

	f.SetCellValue(summary, "A1", "Classification")
	if rep.Result != nil {
		f.SetCellValue(summary, "B1", rep.Result.Label.String())
		for i, name := range rep.Result.MatchedRules {
			cell, _ := excelize.CoordinatesToCellName(2, 3+i)
			f.SetCellValue(summary, cell, name)
		}
		if len(rep.Result.MatchedRules) > 0 {
			f.SetCellValue(summary, "A3", "Matched rules")
		}
	}
	if rep.Source != "" {
		f.SetCellValue(summary, "A2", "Source")
		f.SetCellValue(summary, "B2", rep.Source)
	}

	if rep.Matrix != nil {
		const sheet = "Matrix"
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		headers := []string{"From", "To", "Temporal", "Existential"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for row, c := range sortedCells(rep.Matrix) {
			values := []string{c.From, c.To, c.Temporal, c.Existential}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}
	}

	if len(rep.Ratios) > 0 {
		const sheet = "Ratios"
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		f.SetCellValue(sheet, "A1", "Temporal")
		f.SetCellValue(sheet, "B1", "Existential")
		f.SetCellValue(sheet, "C1", "Ratio")

		type entry struct {
			cell  matrix.Cell
			ratio float64
		}
		entries := make([]entry, 0, len(rep.Ratios))
		for cell, ratio := range rep.Ratios {
			entries = append(entries, entry{cell, ratio})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].cell.Temporal != entries[j].cell.Temporal {
				return entries[i].cell.Temporal < entries[j].cell.Temporal
			}
			return entries[i].cell.Existential < entries[j].cell.Existential
		})
		for i, e := range entries {
			row := strconv.Itoa(i + 2)
			f.SetCellValue(sheet, "A"+row, e.cell.Temporal.String())
			f.SetCellValue(sheet, "B"+row, e.cell.Existential.String())
			f.SetCellValue(sheet, "C"+row, e.ratio)
		}
	}

	return f.SaveAs(path)
}
