// Package heading resolves the section headings of a module catalog to canonical field names.
package heading

import "strings"

// Key is a normalized heading used only for dictionary lookups.
type Key string

var umlautFolder = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
)

// Normalize canonicalizes a raw line into a lookup key: surrounding whitespace
// and one trailing colon are removed, the text is lowercased and German
// umlauts and ß are folded to their ASCII digraphs.
func Normalize(line string) Key {
	s := strings.TrimSpace(line)
	s = strings.TrimSuffix(s, ":")
	s = strings.ToLower(s)
	return Key(umlautFolder.Replace(s))
}

// HasPrefix reports whether the key starts with the normalized form of prefix.
func (k Key) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(k), string(Normalize(prefix)))
}
