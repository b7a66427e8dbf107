// Package compare reports the differences between two parses of a catalog.
package compare

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/coolbeans/modcat/pkg/catalog"
)

// ChangeType represents the type of change between two record sets.
type ChangeType int

const (
	// ChangeAdded indicates a module only present in the target.
	ChangeAdded ChangeType = iota
	// ChangeRemoved indicates a module only present in the base.
	ChangeRemoved
	// ChangeModified indicates a module whose fields differ.
	ChangeModified
	// ChangeUnchanged indicates no change.
	ChangeUnchanged
)

// String returns the string representation of a ChangeType.
func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "ADDED"
	case ChangeRemoved:
		return "REMOVED"
	case ChangeModified:
		return "MODIFIED"
	case ChangeUnchanged:
		return "UNCHANGED"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON implements json.Marshaler for ChangeType.
func (c ChangeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// FieldChange is one field that differs between the base and target record.
type FieldChange struct {
	Field  string  `json:"field"`
	Base   *string `json:"base"`
	Target *string `json:"target"`

	// Similarity is the word overlap of both values, 0-100.
	Similarity int `json:"similarity"`

	// Diff is a unified diff of the two values.
	Diff string `json:"diff,omitempty"`
}

// ModuleChange is the comparison result for one module.
type ModuleChange struct {
	Type ChangeType `json:"type"`
	Code string     `json:"code"`
	Name string     `json:"name"`

	// Occurrence distinguishes modules that share a code; the first is 0.
	Occurrence int `json:"occurrence,omitempty"`

	Fields []FieldChange `json:"fields,omitempty"`
}

// Report is the full comparison of two record sets.
type Report struct {
	Base   string `json:"base"`
	Target string `json:"target"`

	// Changes lists added, removed and modified modules. Unchanged modules
	// are only counted.
	Changes []ModuleChange `json:"changes"`

	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Modified  int `json:"modified"`
	Unchanged int `json:"unchanged"`
}

type moduleKey struct {
	code       string
	occurrence int
}

// Compare matches base and target records by module code, pairing repeated
// codes in document order, and reports what changed. Removed and modified
// modules follow base order; added modules follow, in target order.
func Compare(baseName, targetName string, base, target []catalog.Record) *Report {
	report := &Report{
		Base:    baseName,
		Target:  targetName,
		Changes: []ModuleChange{},
	}

	baseKeys := keyRecords(base)
	targetKeys := keyRecords(target)
	targetByKey := make(map[moduleKey]catalog.Record, len(target))
	for i, rec := range target {
		targetByKey[targetKeys[i]] = rec
	}
	matched := make(map[moduleKey]bool, len(base))

	for i, rec := range base {
		key := baseKeys[i]
		other, ok := targetByKey[key]
		if !ok {
			report.Changes = append(report.Changes, ModuleChange{
				Type:       ChangeRemoved,
				Code:       rec.ModuleNo,
				Name:       rec.Name,
				Occurrence: key.occurrence,
			})
			report.Removed++
			continue
		}
		matched[key] = true

		fields := compareFields(key, rec, other)
		if len(fields) == 0 {
			report.Unchanged++
			continue
		}
		report.Changes = append(report.Changes, ModuleChange{
			Type:       ChangeModified,
			Code:       rec.ModuleNo,
			Name:       other.Name,
			Occurrence: key.occurrence,
			Fields:     fields,
		})
		report.Modified++
	}

	for i, rec := range target {
		key := targetKeys[i]
		if matched[key] {
			continue
		}
		report.Changes = append(report.Changes, ModuleChange{
			Type:       ChangeAdded,
			Code:       rec.ModuleNo,
			Name:       rec.Name,
			Occurrence: key.occurrence,
		})
		report.Added++
	}

	return report
}

// HasChanges reports whether any module was added, removed or modified.
func (r *Report) HasChanges() bool {
	return len(r.Changes) > 0
}

// ToJSON returns the report as JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func keyRecords(records []catalog.Record) []moduleKey {
	seen := make(map[string]int, len(records))
	keys := make([]moduleKey, len(records))
	for i, rec := range records {
		keys[i] = moduleKey{code: rec.ModuleNo, occurrence: seen[rec.ModuleNo]}
		seen[rec.ModuleNo]++
	}
	return keys
}

func compareFields(key moduleKey, base, target catalog.Record) []FieldChange {
	baseValues := base.Values()
	targetValues := target.Values()

	var changes []FieldChange
	for i, bv := range baseValues {
		tv := targetValues[i]
		if equalValues(bv.Value, tv.Value) {
			continue
		}
		changes = append(changes, FieldChange{
			Field:      bv.Name,
			Base:       bv.Value,
			Target:     tv.Value,
			Similarity: similarity(deref(bv.Value), deref(tv.Value)),
			Diff:       unifiedDiff(key, bv.Name, deref(bv.Value), deref(tv.Value)),
		})
	}
	return changes
}

func equalValues(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func unifiedDiff(key moduleKey, field, a, b string) string {
	name := key.code
	if key.occurrence > 0 {
		name = fmt.Sprintf("%s#%d", key.code, key.occurrence)
	}
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(a),
		B:        splitLinesKeepNL(b),
		FromFile: "base/" + name + "/" + field,
		ToFile:   "target/" + name + "/" + field,
		Context:  2,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return ""
	}
	return s
}

// splitLinesKeepNL splits s into lines that keep their "\n", terminating the
// last line so that hunks render cleanly.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	lines := strings.SplitAfter(s, "\n")
	return lines[:len(lines)-1]
}

// similarity is the word-based Jaccard similarity of two texts, 0-100.
func similarity(text1, text2 string) int {
	t1 := strings.Fields(strings.ToLower(text1))
	t2 := strings.Fields(strings.ToLower(text2))

	set1 := make(map[string]bool, len(t1))
	for _, w := range t1 {
		set1[w] = true
	}
	set2 := make(map[string]bool, len(t2))
	for _, w := range t2 {
		set2[w] = true
	}

	intersection := 0
	for w := range set1 {
		if set2[w] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 100
	}
	return intersection * 100 / union
}
