package overview

import "github.com/coolbeans/modcat/pkg/extract"

// Index looks up overview rows by module code.
type Index struct {
	rows       map[string]Row
	duplicates []string
}

// NewIndex keys rows by normalized module code. When a code occurs more than
// once the later row wins and the code is recorded in Duplicates.
func NewIndex(rows []Row) *Index {
	idx := &Index{rows: make(map[string]Row, len(rows))}
	reported := make(map[string]bool)
	for _, row := range rows {
		code := extract.NormalizeCode(row.ModuleNo)
		if code == "" {
			continue
		}
		if _, exists := idx.rows[code]; exists && !reported[code] {
			idx.duplicates = append(idx.duplicates, code)
			reported[code] = true
		}
		row.ModuleNo = code
		idx.rows[code] = row
	}
	return idx
}

// Lookup returns the row for a module code. A nil Index has no rows.
func (idx *Index) Lookup(code string) (Row, bool) {
	if idx == nil {
		return Row{}, false
	}
	row, ok := idx.rows[extract.NormalizeCode(code)]
	return row, ok
}

// Len returns the number of distinct codes.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.rows)
}

// Duplicates lists codes that appeared in more than one row, in order of
// their second appearance.
func (idx *Index) Duplicates() []string {
	if idx == nil {
		return nil
	}
	return idx.duplicates
}
