// Package extract segments the text export of a module catalog into module
// blocks and section maps.
package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/modcat/pkg/heading"
)

// Grammar identifies which header layout introduced a module.
type Grammar string

const (
	// GrammarInline is a header of the form "CODE: Title" on one line.
	GrammarInline Grammar = "inline"
	// GrammarModuleNumber is a "Modulnummer CODE" / "Module number CODE" line.
	GrammarModuleNumber Grammar = "module_number"
	// GrammarBareCode is a line holding only the code, the title on a later line.
	GrammarBareCode Grammar = "bare_code"
)

// HeaderMatch is a detected module start.
type HeaderMatch struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Grammar Grammar `json:"grammar"`

	// HeaderIndex is the line that opened the module.
	HeaderIndex int `json:"header_index"`

	// ContentStart is the first heading line of the module's field region.
	ContentStart int `json:"content_start"`
}

// Block is the raw text of one module, from its first heading up to the
// next module's header line.
type Block struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Grammar     Grammar `json:"grammar"`
	HeaderIndex int     `json:"header_index"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	RawText     string  `json:"raw_text"`
}

var titlePrefixes = []string{"Titel ", "Title "}

// Detector locates module headers in a catalog's lines.
type Detector struct {
	dict *heading.Dictionary

	bareCodePattern     *regexp.Regexp
	inlinePattern       *regexp.Regexp
	moduleNumberPattern *regexp.Regexp
}

// NewDetector creates a Detector resolving field headings with dict. A nil
// dict uses the built-in dictionary.
func NewDetector(dict *heading.Dictionary) *Detector {
	if dict == nil {
		dict = heading.Default()
	}
	return &Detector{
		dict:                dict,
		bareCodePattern:     regexp.MustCompile(`^(?:` + moduleCodeExpr + `)$`),
		inlinePattern:       regexp.MustCompile(`^\s*(` + moduleCodeExpr + `)\s*:\s*(.+?)\s*$`),
		moduleNumberPattern: regexp.MustCompile(`^(?:Modulnummer|Module number)\s+(` + moduleCodeExpr + `)\s*$`),
	}
}

// Detect scans lines left to right and returns the accepted module headers in
// line order. At each position the inline grammar is tried first, then the
// module-number grammar, then the bare-code grammar. A candidate is accepted
// only if a known heading follows it; scanning then resumes after that heading.
func (d *Detector) Detect(lines []string) []HeaderMatch {
	var matches []HeaderMatch
	for i := 0; i < len(lines); {
		m, ok := d.matchAt(lines, i)
		if !ok {
			i++
			continue
		}
		matches = append(matches, m)
		i = m.ContentStart + 1
	}
	return matches
}

func (d *Detector) matchAt(lines []string, idx int) (HeaderMatch, bool) {
	line := strings.TrimSpace(lines[idx])
	if line == "" {
		return HeaderMatch{}, false
	}

	if m := d.inlinePattern.FindStringSubmatch(line); m != nil {
		match := HeaderMatch{
			Code:        NormalizeCode(m[1]),
			Name:        strings.TrimSpace(m[2]),
			Grammar:     GrammarInline,
			HeaderIndex: idx,
		}
		return d.withContentStart(lines, match, idx+1)
	}

	if m := d.moduleNumberPattern.FindStringSubmatch(line); m != nil {
		code := NormalizeCode(m[1])
		match := HeaderMatch{
			Code:        code,
			Name:        d.moduleNumberTitle(lines, idx, code),
			Grammar:     GrammarModuleNumber,
			HeaderIndex: idx,
		}
		return d.withContentStart(lines, match, idx+1)
	}

	if d.bareCodePattern.MatchString(line) {
		return d.matchBareCode(lines, idx, NormalizeCode(line))
	}

	return HeaderMatch{}, false
}

// matchBareCode takes the title from the next non-blank line, skipping one
// repeated code line that some catalogs print under the code.
func (d *Detector) matchBareCode(lines []string, idx int, code string) (HeaderMatch, bool) {
	j, ok := d.bareCodeTitle(lines, idx)
	if !ok {
		return HeaderMatch{}, false
	}

	match := HeaderMatch{
		Code:        code,
		Name:        strings.TrimSpace(lines[j]),
		Grammar:     GrammarBareCode,
		HeaderIndex: idx,
	}
	return d.withContentStart(lines, match, j+1)
}

// bareCodeTitle returns the index of the title line of a bare code header at
// idx. A field heading is never a title.
func (d *Detector) bareCodeTitle(lines []string, idx int) (int, bool) {
	j := nextNonBlank(lines, idx+1)
	if j < len(lines) && d.bareCodePattern.MatchString(strings.TrimSpace(lines[j])) {
		j = nextNonBlank(lines, j+1)
	}
	if j >= len(lines) || d.dict.IsHeading(lines[j]) {
		return 0, false
	}
	return j, true
}

// moduleNumberTitle finds the module title for a module-number header: a
// "Titel"/"Title" line inside the module, else the title of an inline header
// on the previous line, else the code itself.
func (d *Detector) moduleNumberTitle(lines []string, idx int, code string) string {
search:
	for j := idx + 1; j < len(lines); j++ {
		text := strings.TrimSpace(lines[j])
		if d.opensOtherModule(lines, j, code) {
			break
		}
		for _, prefix := range titlePrefixes {
			if strings.HasPrefix(text, prefix) {
				if name := strings.TrimSpace(text[len(prefix):]); name != "" {
					return name
				}
				break search
			}
		}
	}

	if idx > 0 {
		if m := d.inlinePattern.FindStringSubmatch(strings.TrimSpace(lines[idx-1])); m != nil {
			return strings.TrimSpace(m[2])
		}
	}
	return code
}

// withContentStart completes a candidate with the index of the first heading
// at or after from. The candidate is rejected when the input ends, or a header
// of another module appears, before any heading.
func (d *Detector) withContentStart(lines []string, match HeaderMatch, from int) (HeaderMatch, bool) {
	for k := from; k < len(lines); k++ {
		text := strings.TrimSpace(lines[k])
		if text == "" {
			continue
		}
		if d.dict.IsHeading(text) {
			match.ContentStart = k
			return match, true
		}
		if d.opensOtherModule(lines, k, match.Code) {
			return HeaderMatch{}, false
		}
	}
	return HeaderMatch{}, false
}

// opensOtherModule reports whether the line at idx is a header, under any
// grammar, for a module other than code. It does not look for the header's
// first heading: the caller is scanning for that same heading, so the header
// at idx would be accepted exactly when the caller's scan succeeds.
func (d *Detector) opensOtherModule(lines []string, idx int, code string) bool {
	text := strings.TrimSpace(lines[idx])
	var other string
	switch {
	case text == "":
		return false
	case d.inlinePattern.MatchString(text):
		other = d.inlinePattern.FindStringSubmatch(text)[1]
	case d.moduleNumberPattern.MatchString(text):
		other = d.moduleNumberPattern.FindStringSubmatch(text)[1]
	case d.bareCodePattern.MatchString(text):
		if _, ok := d.bareCodeTitle(lines, idx); !ok {
			return false
		}
		other = text
	default:
		return false
	}
	return !SameCode(other, code)
}

// Blocks cuts lines into one block per match. A block runs from the match's
// content start to the next match's header line, or to the end of input.
func Blocks(lines []string, matches []HeaderMatch) []Block {
	blocks := make([]Block, 0, len(matches))
	for i, m := range matches {
		end := len(lines)
		if i+1 < len(matches) {
			end = matches[i+1].HeaderIndex
		}
		blocks = append(blocks, Block{
			Code:        m.Code,
			Name:        m.Name,
			Grammar:     m.Grammar,
			HeaderIndex: m.HeaderIndex,
			Start:       m.ContentStart,
			End:         end,
			RawText:     strings.TrimSpace(strings.Join(lines[m.ContentStart:end], "\n")),
		})
	}
	return blocks
}

func nextNonBlank(lines []string, from int) int {
	for from < len(lines) && strings.TrimSpace(lines[from]) == "" {
		from++
	}
	return from
}
