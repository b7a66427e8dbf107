package extract

import (
	"strings"

	"github.com/coolbeans/modcat/pkg/heading"
)

// HeadingHit is a heading line found in a block and the field it resolves to.
type HeadingHit struct {
	Line  Line          `json:"line"`
	Field heading.Field `json:"field"`
}

// TraceHeadings lists the distinct heading lines of a block in order of first
// appearance. Line indexes are relative to the block.
func TraceHeadings(rawText string, dict *heading.Dictionary) []HeadingHit {
	if dict == nil {
		dict = heading.Default()
	}

	var hits []HeadingHit
	seen := make(map[string]bool)
	for i, line := range SplitLines(rawText) {
		field, ok := dict.Lookup(line)
		if !ok || seen[line] {
			continue
		}
		seen[line] = true
		hits = append(hits, HeadingHit{
			Line:  Line{Index: i, Text: strings.TrimSpace(line)},
			Field: field,
		})
	}
	return hits
}
