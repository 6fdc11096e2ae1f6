package study

import "strings"

// TaxonomyLevel is one of Bloom's six cognitive levels.
type TaxonomyLevel string

const (
	LevelRemember   TaxonomyLevel = "remember"
	LevelUnderstand TaxonomyLevel = "understand"
	LevelApply      TaxonomyLevel = "apply"
	LevelAnalyze    TaxonomyLevel = "analyze"
	LevelEvaluate   TaxonomyLevel = "evaluate"
	LevelCreate     TaxonomyLevel = "create"
)

// TaxonomyLevels is ordered from lowest to highest cognitive demand.
var TaxonomyLevels = []TaxonomyLevel{
	LevelRemember,
	LevelUnderstand,
	LevelApply,
	LevelAnalyze,
	LevelEvaluate,
	LevelCreate,
}

func ParseTaxonomyLevel(raw string) (TaxonomyLevel, bool) {
	l := TaxonomyLevel(strings.ToLower(strings.TrimSpace(raw)))
	return l, l.Valid()
}

func (l TaxonomyLevel) Valid() bool {
	return l.Rank() >= 0
}

// Rank is the zero-based position in TaxonomyLevels, or -1.
func (l TaxonomyLevel) Rank() int {
	for i, v := range TaxonomyLevels {
		if v == l {
			return i
		}
	}
	return -1
}

func TaxonomyLevelStrings() []string {
	out := make([]string, len(TaxonomyLevels))
	for i, l := range TaxonomyLevels {
		out[i] = string(l)
	}
	return out
}
