package extract

import (
	"strings"

	"github.com/coolbeans/modcat/pkg/heading"
)

// SectionMap holds the body text of each section found in one module.
type SectionMap map[heading.Field]string

// Get returns the section text, or "" when the section is absent.
func (s SectionMap) Get(field heading.Field) string {
	return s[field]
}

// Lookup returns the section text and whether the section was present.
func (s SectionMap) Lookup(field heading.Field) (string, bool) {
	v, ok := s[field]
	return v, ok
}

// admissionHeading is the heading some catalogs wrap over two physical lines
// ("Zulassungsvoraussetzungen" / "zur Prüfung").
const admissionHeading = "Zulassungsvoraussetzungen zur Prüfung"

// Segmenter splits a module block into sections.
type Segmenter struct {
	dict *heading.Dictionary
}

// NewSegmenter creates a Segmenter. A nil dict uses the built-in dictionary.
func NewSegmenter(dict *heading.Dictionary) *Segmenter {
	if dict == nil {
		dict = heading.Default()
	}
	return &Segmenter{dict: dict}
}

// Split walks the block line by line. A heading line closes the open section
// and opens the one it names; any other line is appended to the open section,
// or dropped before the first heading. A section seen twice keeps its last body.
func (s *Segmenter) Split(rawText string) SectionMap {
	lines := SplitLines(rawText)
	sections := make(SectionMap)

	var (
		current heading.Field
		open    bool
		buf     []string
	)
	commit := func() {
		if open && len(buf) > 0 {
			sections[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
		buf = buf[:0]
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		key := heading.Normalize(line)

		if key.HasPrefix("zulassungsvoraussetzungen") && i+1 < len(lines) &&
			heading.Normalize(lines[i+1]).HasPrefix("zur prüfung") {
			key = heading.Normalize(admissionHeading)
			i++
		}

		if field, ok := s.dict.Resolve(key); ok {
			commit()
			current = field
			open = true
			continue
		}
		if open {
			buf = append(buf, line)
		}
	}
	commit()

	return sections
}
