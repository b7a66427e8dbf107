package heading

import (
	"fmt"
	"sort"
)

// Field is the canonical, language-independent name of a module section.
type Field string

const (
	FieldFormOfModule          Field = "form_of_module"
	FieldTypeOfModule          Field = "type_of_module"
	FieldLevel                 Field = "level"
	FieldECTS                  Field = "ects"
	FieldPrerequisites         Field = "prerequisites"
	FieldAimOfModule           Field = "aim_of_module"
	FieldLearningOutcomes      Field = "learning_outcomes"
	FieldMethods               Field = "methods"
	FieldFormOfAssessment      Field = "form_of_assessment"
	FieldAdmissionRequirements Field = "admission_requirements_for_assessment"
	FieldDurationOfAssessment  Field = "duration_of_assessment"
	FieldLanguage              Field = "language"
	FieldOffering              Field = "offering"
	FieldLecturer              Field = "lecturer"
	FieldPersonInCharge        Field = "person_in_charge"
	FieldDurationOfModule      Field = "duration_of_module"
	FieldFurtherModules        Field = "further_modules"
	FieldRangeOfApplication    Field = "range_of_application"
	FieldSemester              Field = "semester"
	FieldLiterature            Field = "literature"
	FieldMedia                 Field = "media"
)

// Fields lists every canonical field in catalog order.
var Fields = []Field{
	FieldFormOfModule,
	FieldTypeOfModule,
	FieldLevel,
	FieldECTS,
	FieldPrerequisites,
	FieldAimOfModule,
	FieldLearningOutcomes,
	FieldMethods,
	FieldFormOfAssessment,
	FieldAdmissionRequirements,
	FieldDurationOfAssessment,
	FieldLanguage,
	FieldOffering,
	FieldLecturer,
	FieldPersonInCharge,
	FieldDurationOfModule,
	FieldFurtherModules,
	FieldRangeOfApplication,
	FieldSemester,
	FieldLiterature,
	FieldMedia,
}

// IsValid reports whether f is one of the canonical fields.
func (f Field) IsValid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// builtinPhrases maps the printed headings (English and German) to their fields.
var builtinPhrases = []Entry{
	// English
	{Phrase: "Form of module", Field: FieldFormOfModule},
	{Phrase: "Type of module", Field: FieldTypeOfModule},
	{Phrase: "Level", Field: FieldLevel},
	{Phrase: "ECTS", Field: FieldECTS},
	{Phrase: "Prerequisites", Field: FieldPrerequisites},
	{Phrase: "Aim of module", Field: FieldAimOfModule},
	{Phrase: "Learning outcomes and qualification goals", Field: FieldLearningOutcomes},
	{Phrase: "Learning outcomes", Field: FieldLearningOutcomes},
	{Phrase: "Methods", Field: FieldMethods},
	{Phrase: "Form of assessment", Field: FieldFormOfAssessment},
	{Phrase: "Admission requirements for assessment", Field: FieldAdmissionRequirements},
	{Phrase: "Duration of assessment", Field: FieldDurationOfAssessment},
	{Phrase: "Language", Field: FieldLanguage},
	{Phrase: "Offering", Field: FieldOffering},
	{Phrase: "Offered", Field: FieldOffering},
	{Phrase: "Lecturer", Field: FieldLecturer},
	{Phrase: "Person in charge", Field: FieldPersonInCharge},
	{Phrase: "Duration of module", Field: FieldDurationOfModule},
	{Phrase: "Further modules", Field: FieldFurtherModules},
	{Phrase: "Range of application", Field: FieldRangeOfApplication},
	{Phrase: "Semester", Field: FieldSemester},
	{Phrase: "Literature", Field: FieldLiterature},
	{Phrase: "Media", Field: FieldMedia},

	// German
	{Phrase: "Form der Veranstaltung", Field: FieldFormOfModule},
	{Phrase: "Typ der Veranstaltung", Field: FieldTypeOfModule},
	{Phrase: "Modulniveau", Field: FieldLevel},
	{Phrase: "Vorausgesetzte Kenntnisse", Field: FieldPrerequisites},
	{Phrase: "Lehrinhalte", Field: FieldAimOfModule},
	{Phrase: "Lern- und Kompetenzziele", Field: FieldLearningOutcomes},
	{Phrase: "Lernziele", Field: FieldLearningOutcomes},
	{Phrase: "Lehr- und Lernmethoden", Field: FieldMethods},
	{Phrase: "Art der Prüfungsleistung", Field: FieldFormOfAssessment},
	{Phrase: "Prüfungsvorleistungen", Field: FieldAdmissionRequirements},
	{Phrase: "Zulassungsvoraussetzungen zur Prüfung", Field: FieldAdmissionRequirements},
	{Phrase: "Prüfungsdauer", Field: FieldDurationOfAssessment},
	{Phrase: "Sprache", Field: FieldLanguage},
	{Phrase: "Angebotsturnus", Field: FieldOffering},
	{Phrase: "Lehrende/r", Field: FieldLecturer},
	{Phrase: "Modulverantwortlicher", Field: FieldPersonInCharge},
	{Phrase: "Dauer des Moduls", Field: FieldDurationOfModule},
	{Phrase: "Weiterführende Module", Field: FieldFurtherModules},
	{Phrase: "Verwendbarkeit", Field: FieldRangeOfApplication},
	{Phrase: "Einordnung in Fachsemester", Field: FieldSemester},
	{Phrase: "Begleitende Literatur", Field: FieldLiterature},
	{Phrase: "Medienformen", Field: FieldMedia},
}

// Entry pairs a printed heading phrase with the field it resolves to.
type Entry struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Field  Field  `yaml:"field" json:"field"`
}

// Dictionary is an immutable mapping from normalized headings to fields.
// The zero value resolves nothing; build one with NewDictionary or Default.
type Dictionary struct {
	entries map[Key]Field
	phrases map[Key]string
}

var defaultDictionary = mustDictionary(builtinPhrases)

// Default returns the built-in bilingual dictionary.
func Default() *Dictionary {
	return defaultDictionary
}

// NewDictionary builds a dictionary from phrase entries. A later entry for the
// same normalized phrase replaces an earlier one.
func NewDictionary(entries []Entry) (*Dictionary, error) {
	d := &Dictionary{
		entries: make(map[Key]Field, len(entries)),
		phrases: make(map[Key]string, len(entries)),
	}
	for i, e := range entries {
		key := Normalize(e.Phrase)
		if key == "" {
			return nil, fmt.Errorf("entry %d: empty phrase", i)
		}
		if !e.Field.IsValid() {
			return nil, fmt.Errorf("entry %d (%q): unknown field %q", i, e.Phrase, e.Field)
		}
		d.entries[key] = e.Field
		d.phrases[key] = e.Phrase
	}
	return d, nil
}

func mustDictionary(entries []Entry) *Dictionary {
	d, err := NewDictionary(entries)
	if err != nil {
		panic(err)
	}
	return d
}

// Extend returns a new dictionary containing d's entries overlaid with extra.
func (d *Dictionary) Extend(extra []Entry) (*Dictionary, error) {
	return NewDictionary(append(d.Entries(), extra...))
}

// Resolve returns the field a normalized heading maps to.
func (d *Dictionary) Resolve(key Key) (Field, bool) {
	if d == nil {
		return "", false
	}
	f, ok := d.entries[key]
	return f, ok
}

// Lookup normalizes line and resolves it.
func (d *Dictionary) Lookup(line string) (Field, bool) {
	return d.Resolve(Normalize(line))
}

// IsHeading reports whether line is a known heading.
func (d *Dictionary) IsHeading(line string) bool {
	_, ok := d.Lookup(line)
	return ok
}

// Len returns the number of distinct normalized headings.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns the dictionary contents sorted by normalized key.
func (d *Dictionary) Entries() []Entry {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Phrase: d.phrases[Key(k)], Field: d.entries[Key(k)]})
	}
	return entries
}
