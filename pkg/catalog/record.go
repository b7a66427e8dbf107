// Package catalog assembles module records from a catalog's lines and its
// optional overview tables.
package catalog

import (
	"strconv"

	"github.com/coolbeans/modcat/pkg/extract"
	"github.com/coolbeans/modcat/pkg/heading"
	"github.com/coolbeans/modcat/pkg/overview"
)

// Record is one module of the catalog. Unset fields are nil and serialize
// as null.
type Record struct {
	ModuleNo                           string                   `json:"moduleno"`
	Name                               string                   `json:"name"`
	FormOfModule                       *string                  `json:"form_of_module"`
	TypeOfModule                       *string                  `json:"type_of_module"`
	Level                              *string                  `json:"level"`
	ECTS                               *int                     `json:"ects"`
	Prerequisites                      *string                  `json:"prerequisites"`
	AimOfModule                        *string                  `json:"aim_of_module"`
	LearningOutcomes                   extract.LearningOutcomes `json:"learning_outcomes"`
	Literature                         *string                  `json:"literature"`
	FormOfAssessment                   *string                  `json:"form_of_assessment"`
	AdmissionRequirementsForAssessment *string                  `json:"admission_requirements_for_assessment"`
	DurationOfAssessment               *string                  `json:"duration_of_assessment"`
	Language                           *string                  `json:"language"`
	Offering                           *string                  `json:"offering"`
	Lecturer                           *string                  `json:"lecturer"`
	PersonInCharge                     *string                  `json:"person_in_charge"`
	DurationOfModule                   *string                  `json:"duration_of_module"`
	FurtherModules                     *string                  `json:"further_modules"`
	RangeOfApplication                 *string                  `json:"range_of_application"`
	Semester                           *string                  `json:"semester"`
	Methods                            *string                  `json:"methods"`
	Media                              *string                  `json:"media"`
}

// NewRecord builds a record from a module's header and its sections. The
// learning-outcomes section is split into its competence areas and ECTS is
// read from the first number in its section.
func NewRecord(code, name string, sections extract.SectionMap) Record {
	opt := func(f heading.Field) *string {
		v, ok := sections.Lookup(f)
		if !ok {
			return nil
		}
		return &v
	}

	rec := Record{
		ModuleNo:                           code,
		Name:                               name,
		FormOfModule:                       opt(heading.FieldFormOfModule),
		TypeOfModule:                       opt(heading.FieldTypeOfModule),
		Level:                              opt(heading.FieldLevel),
		Prerequisites:                      opt(heading.FieldPrerequisites),
		AimOfModule:                        opt(heading.FieldAimOfModule),
		LearningOutcomes:                   extract.ParseLearningOutcomes(sections.Get(heading.FieldLearningOutcomes)),
		Literature:                         opt(heading.FieldLiterature),
		FormOfAssessment:                   opt(heading.FieldFormOfAssessment),
		AdmissionRequirementsForAssessment: opt(heading.FieldAdmissionRequirements),
		DurationOfAssessment:               opt(heading.FieldDurationOfAssessment),
		Language:                           opt(heading.FieldLanguage),
		Offering:                           opt(heading.FieldOffering),
		Lecturer:                           opt(heading.FieldLecturer),
		PersonInCharge:                     opt(heading.FieldPersonInCharge),
		DurationOfModule:                   opt(heading.FieldDurationOfModule),
		FurtherModules:                     opt(heading.FieldFurtherModules),
		RangeOfApplication:                 opt(heading.FieldRangeOfApplication),
		Semester:                           opt(heading.FieldSemester),
		Methods:                            opt(heading.FieldMethods),
		Media:                              opt(heading.FieldMedia),
	}
	if text, ok := sections.Lookup(heading.FieldECTS); ok {
		rec.ECTS = extract.ParseECTS(text)
	}
	return rec
}

// Merge overlays an overview row onto rec. Name, level and type of module are
// replaced when the row has a non-empty value; ECTS is replaced when the row
// has a number. Everything else is left as segmented.
func Merge(rec *Record, row overview.Row) {
	if row.Name != "" {
		rec.Name = row.Name
	}
	if row.ECTS != nil {
		ects := *row.ECTS
		rec.ECTS = &ects
	}
	if row.Level != "" {
		level := row.Level
		rec.Level = &level
	}
	if row.TypeOfModule != "" {
		typ := row.TypeOfModule
		rec.TypeOfModule = &typ
	}
}

// FieldValue is one named value of a record.
type FieldValue struct {
	Name  string
	Value *string
}

// Values lists the record's fields in serialization order, with the learning
// outcomes flattened to learning_outcomes.<area> and ECTS formatted as text.
// ModuleNo and Name are included.
func (r Record) Values() []FieldValue {
	var ects *string
	if r.ECTS != nil {
		s := strconv.Itoa(*r.ECTS)
		ects = &s
	}
	moduleNo, name := r.ModuleNo, r.Name
	return []FieldValue{
		{"moduleno", &moduleNo},
		{"name", &name},
		{"form_of_module", r.FormOfModule},
		{"type_of_module", r.TypeOfModule},
		{"level", r.Level},
		{"ects", ects},
		{"prerequisites", r.Prerequisites},
		{"aim_of_module", r.AimOfModule},
		{"learning_outcomes.expertise", r.LearningOutcomes.Expertise},
		{"learning_outcomes.methodological_competence", r.LearningOutcomes.MethodologicalCompetence},
		{"learning_outcomes.personal_competence", r.LearningOutcomes.PersonalCompetence},
		{"literature", r.Literature},
		{"form_of_assessment", r.FormOfAssessment},
		{"admission_requirements_for_assessment", r.AdmissionRequirementsForAssessment},
		{"duration_of_assessment", r.DurationOfAssessment},
		{"language", r.Language},
		{"offering", r.Offering},
		{"lecturer", r.Lecturer},
		{"person_in_charge", r.PersonInCharge},
		{"duration_of_module", r.DurationOfModule},
		{"further_modules", r.FurtherModules},
		{"range_of_application", r.RangeOfApplication},
		{"semester", r.Semester},
		{"methods", r.Methods},
		{"media", r.Media},
	}
}

// FilledFields counts the fields other than moduleno and name that are set.
func (r Record) FilledFields() int {
	n := 0
	for _, v := range r.Values()[2:] {
		if v.Value != nil {
			n++
		}
	}
	return n
}
