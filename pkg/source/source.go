package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coolbeans/modcat/pkg/extract"
	"github.com/coolbeans/modcat/pkg/overview"
)

// pageBreak separates pages in a pdftotext export.
const pageBreak = "\f"

// LineSource produces the lines of a catalog.
type LineSource interface {
	Lines(ctx context.Context) ([]string, error)
}

// TableSource produces the rows of a catalog's overview tables.
type TableSource interface {
	Rows(ctx context.Context) ([]overview.Row, error)
}

// TextFile is a catalog text export on disk.
type TextFile struct {
	Path string

	// Pages limits the lines to these pages; nil keeps every page.
	Pages PageRange
}

// Lines reads the file and returns the lines of the selected pages.
func (f TextFile) Lines(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog text: %w", err)
	}
	defer file.Close()

	lines, err := extract.ReadLines(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog text %s: %w", f.Path, err)
	}
	return SelectPages(lines, f.Pages), nil
}

// SelectPages splits lines into pages on form feeds and returns the lines of
// the selected pages in order; nil pages keeps every page. A form feed ends a
// page wherever it sits in a line and never produces a line of its own.
func SelectPages(lines []string, pages PageRange) []string {
	page := 1
	selected := make([]string, 0, len(lines))
	for _, line := range lines {
		parts := strings.Split(line, pageBreak)
		for i, part := range parts {
			if i > 0 {
				page++
			}
			if part == "" && len(parts) > 1 {
				continue
			}
			if pages == nil || pages.Contains(page) {
				selected = append(selected, part)
			}
		}
	}
	return selected
}

// CSVTables reads one overview table per CSV file. The first record of each
// file is the header row.
type CSVTables struct {
	Paths []string
	Log   zerolog.Logger
}

// Rows reads every file and concatenates the rows of the files that are
// overview tables. Files whose header has no module column are skipped.
func (t CSVTables) Rows(ctx context.Context) ([]overview.Row, error) {
	var rows []overview.Row
	for _, path := range t.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grid, err := readGrid(path)
		if err != nil {
			return nil, err
		}
		tableRows, ok := overview.NormalizeGrid(grid)
		if !ok {
			t.Log.Debug().Str("path", path).Msg("skipping table without module column")
			continue
		}
		t.Log.Debug().Str("path", path).Int("rows", len(tableRows)).Msg("loaded overview table")
		rows = append(rows, tableRows...)
	}
	return rows, nil
}

// JSONTables reads overview tables exported as JSON arrays of objects keyed
// by the original column headers, one table per file, as dataframe tools write
// them with records orientation. Non-string cells are kept in their JSON text.
type JSONTables struct {
	Paths []string
	Log   zerolog.Logger
}

// Rows reads every file and concatenates the overview rows found in them.
func (t JSONTables) Rows(ctx context.Context) ([]overview.Row, error) {
	var rows []overview.Row
	for _, path := range t.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := readRecords(path)
		if err != nil {
			return nil, err
		}
		tableRows := overview.FromRecords(records)
		t.Log.Debug().Str("path", path).Int("records", len(records)).Int("rows", len(tableRows)).Msg("loaded overview table")
		rows = append(rows, tableRows...)
	}
	return rows, nil
}

// OverviewTables reads overview tables of either export format, using the
// JSON reader for files ending in .json and the CSV reader for everything
// else. File order is kept so that later tables still win on duplicate codes.
type OverviewTables struct {
	Paths []string
	Log   zerolog.Logger
}

// Rows reads every file with the reader its extension selects.
func (t OverviewTables) Rows(ctx context.Context) ([]overview.Row, error) {
	var rows []overview.Row
	for _, path := range t.Paths {
		var src TableSource = CSVTables{Paths: []string{path}, Log: t.Log}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			src = JSONTables{Paths: []string{path}, Log: t.Log}
		}
		tableRows, err := src.Rows(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, tableRows...)
	}
	return rows, nil
}

func readRecords(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overview table: %w", err)
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse overview table %s: %w", path, err)
	}

	records := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		rec := make(map[string]string, len(obj))
		for header, cell := range obj {
			var text string
			if err := json.Unmarshal(cell, &text); err != nil {
				// numbers keep their literal form; null becomes ""
				text = strings.TrimSpace(string(cell))
				if text == "null" {
					text = ""
				}
			}
			rec[header] = text
		}
		records = append(records, rec)
	}
	return records, nil
}

func readGrid(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open overview table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var grid [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse overview table %s: %w", path, err)
		}
		grid = append(grid, record)
	}
	return grid, nil
}
