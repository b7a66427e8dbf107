package heading

import "fmt"

// Profile declares additional heading phrases for catalogs whose wording
// differs from the built-in dictionary. Profiles are loaded from YAML:
//
//	name: Business Informatics (2019)
//	profile_id: wifo-2019
//	version: 1.0.0
//	headings:
//	  - phrase: Lernergebnisse
//	    field: learning_outcomes
type Profile struct {
	Name        string  `yaml:"name" json:"name"`
	ProfileID   string  `yaml:"profile_id" json:"profile_id"`
	Version     string  `yaml:"version" json:"version"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Headings    []Entry `yaml:"headings" json:"headings"`

	source string
}

// Validate checks that the profile has all required fields and that every
// heading resolves to a canonical field.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.ProfileID == "" {
		return fmt.Errorf("profile profile_id is required")
	}
	if p.Version == "" {
		return fmt.Errorf("profile version is required")
	}
	if len(p.Headings) == 0 {
		return fmt.Errorf("profile %q declares no headings", p.ProfileID)
	}
	for i, h := range p.Headings {
		if Normalize(h.Phrase) == "" {
			return fmt.Errorf("heading %d: phrase is required", i)
		}
		if !h.Field.IsValid() {
			return fmt.Errorf("heading %d (%q): unknown field %q", i, h.Phrase, h.Field)
		}
	}
	return nil
}

// Source returns the file the profile was loaded from, if any.
func (p *Profile) Source() string {
	return p.source
}
