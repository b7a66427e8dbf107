package extract

import (
	"regexp"
	"strings"
)

// LearningOutcomes is the learning-outcomes section split into its three
// competence areas. Unset areas are nil.
type LearningOutcomes struct {
	Expertise                *string `json:"expertise"`
	MethodologicalCompetence *string `json:"methodological_competence"`
	PersonalCompetence       *string `json:"personal_competence"`
}

// IsZero reports whether no competence area is set.
func (lo LearningOutcomes) IsZero() bool {
	return lo.Expertise == nil && lo.MethodologicalCompetence == nil && lo.PersonalCompetence == nil
}

var outcomeMarkerPattern = regexp.MustCompile(`Expertise:|Methodological competence:|Personal competence:`)

// ParseLearningOutcomes splits text on the inline markers "Expertise:",
// "Methodological competence:" and "Personal competence:", in whatever order
// they appear. Text before the first marker is dropped. Without any marker the
// whole text becomes the expertise.
func ParseLearningOutcomes(text string) LearningOutcomes {
	var lo LearningOutcomes
	if strings.TrimSpace(text) == "" {
		return lo
	}

	locs := outcomeMarkerPattern.FindAllStringIndex(text, -1)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segment := strings.TrimSpace(text[loc[1]:end])
		if segment == "" {
			continue
		}

		switch marker := text[loc[0]:loc[1]]; {
		case strings.HasPrefix(marker, "Expertise"):
			lo.Expertise = &segment
		case strings.HasPrefix(marker, "Methodological"):
			lo.MethodologicalCompetence = &segment
		default:
			lo.PersonalCompetence = &segment
		}
	}

	if lo.IsZero() {
		whole := strings.TrimSpace(text)
		lo.Expertise = &whole
	}
	return lo
}
