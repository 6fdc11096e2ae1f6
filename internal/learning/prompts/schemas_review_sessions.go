package prompts

import "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"

// ReviewSessionsSchema is the strict response contract for session generation.
func ReviewSessionsSchema() map[string]any {
	session := StrictObject(map[string]any{
		"questions":     StringArraySchema(),
		"answers":       StringArraySchema(),
		"hints":         StringArraySchema(),
		"taxonomyLevel": EnumSchema(study.TaxonomyLevelStrings()...),
		"exerciseLabel": StringSchema(),
	})
	return StrictObject(map[string]any{
		"sessions": ArraySchema(session),
	})
}
