// Package overview normalizes the summary tables printed at the front of a
// module catalog and indexes their rows by module code.
package overview

import (
	"sort"
	"strings"

	"github.com/coolbeans/modcat/pkg/extract"
)

// Column names after normalization.
const (
	ColumnModuleNo     = "moduleno"
	ColumnName         = "name"
	ColumnECTS         = "ects"
	ColumnTypeOfModule = "type_of_module"
	ColumnLevel        = "level"
)

// Row is one overview table row. Empty strings and a nil ECTS mean the table
// had no value (or no column) for that field.
type Row struct {
	ModuleNo     string `json:"moduleno"`
	Name         string `json:"name,omitempty"`
	Level        string `json:"level,omitempty"`
	TypeOfModule string `json:"type_of_module,omitempty"`
	ECTS         *int   `json:"ects,omitempty"`
}

// ColumnFor maps a raw table header to its normalized column name. The
// moduleno column is assigned by the caller because only the first
// "module..." header may claim it; ColumnFor returns "" for such headers.
// A name column must be the module's name ("Name", "Name of module"), so
// headers like "Lecturer name" are not mistaken for it.
func ColumnFor(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case h == "" || strings.HasPrefix(h, "module"):
		return ""
	case h == "name" || (strings.Contains(h, "name") && strings.Contains(h, "module")):
		return ColumnName
	case strings.Contains(h, "ects"):
		return ColumnECTS
	case strings.Contains(h, "type of module") || h == "type":
		return ColumnTypeOfModule
	case strings.Contains(h, "level"):
		return ColumnLevel
	}
	return ""
}

// Columns renames a header row. The first header starting with "module"
// becomes moduleno; later "module..." headers and unrecognized headers map to "".
func Columns(header []string) []string {
	cols := make([]string, len(header))
	moduleNo := false
	for i, h := range header {
		norm := strings.ToLower(strings.TrimSpace(h))
		if strings.HasPrefix(norm, "module") {
			if !moduleNo {
				cols[i] = ColumnModuleNo
				moduleNo = true
			}
			continue
		}
		cols[i] = ColumnFor(norm)
	}
	return cols
}

// NormalizeGrid converts one extracted table, header row first, into rows. A
// grid whose header mentions no "module" column is not an overview table and
// is reported with ok == false. Rows without a module code are skipped.
func NormalizeGrid(grid [][]string) (rows []Row, ok bool) {
	if len(grid) == 0 {
		return nil, false
	}
	header := grid[0]
	isOverview := false
	for _, h := range header {
		if strings.Contains(strings.ToLower(h), "module") {
			isOverview = true
			break
		}
	}
	if !isOverview {
		return nil, false
	}

	cols := Columns(header)
	for _, cells := range grid[1:] {
		record := make(map[string]string, len(cols))
		for i, col := range cols {
			if col == "" || i >= len(cells) {
				continue
			}
			if _, seen := record[col]; seen {
				continue
			}
			record[col] = cells[i]
		}
		if row, ok := rowFrom(record); ok {
			rows = append(rows, row)
		}
	}
	return rows, true
}

// FromRecords converts rows that an extractor already keyed by header name.
func FromRecords(records []map[string]string) []Row {
	var rows []Row
	for _, rec := range records {
		headers := make([]string, 0, len(rec))
		for h := range rec {
			headers = append(headers, h)
		}
		sort.Strings(headers)

		cols := Columns(headers)
		normalized := make(map[string]string, len(cols))
		for i, col := range cols {
			if col == "" {
				continue
			}
			if _, seen := normalized[col]; !seen {
				normalized[col] = rec[headers[i]]
			}
		}
		if row, ok := rowFrom(normalized); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func rowFrom(record map[string]string) (Row, bool) {
	code := extract.NormalizeCode(record[ColumnModuleNo])
	if code == "" {
		return Row{}, false
	}
	return Row{
		ModuleNo:     code,
		Name:         strings.TrimSpace(record[ColumnName]),
		Level:        strings.TrimSpace(record[ColumnLevel]),
		TypeOfModule: strings.TrimSpace(record[ColumnTypeOfModule]),
		ECTS:         extract.ParseECTS(record[ColumnECTS]),
	}, true
}
