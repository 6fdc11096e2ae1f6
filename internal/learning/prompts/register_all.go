package prompts

import "sync"

var registerOnce sync.Once

// RegisterAll registers every prompt. Safe to call more than once.
func RegisterAll() {
	registerOnce.Do(registerAll)
}

func init() { RegisterAll() }

func registerAll() {
	RegisterSpec(Spec{
		Name:       PromptReviewSessions,
		Version:    1,
		SchemaName: "review_sessions",
		Schema:     ReviewSessionsSchema,
		System: `
You are an expert instructional designer who writes spaced-repetition review exercises.
You classify every exercise by Bloom's taxonomy: remember, understand, apply, analyze, evaluate, create.
Ground every question in the provided material. Do not invent facts that are not in it.
Return JSON only.`,
		User: `
Source material:
"""
{{.SourceMaterial}}
"""

Write exactly {{.RequestedCount}} review sessions.
Spread them across these taxonomy levels: {{.TaxonomyLevelsCSV}}.
{{- if .TemplatesText}}

Where it fits, shape sessions after these exercise templates:
{{.TemplatesText}}
{{- end}}

Output rules:
- sessions: array of exactly {{.RequestedCount}} objects.
- questions and answers: same length, 2-6 items, answers[i] answers questions[i].
- hints: either empty or one short hint per question.
- taxonomyLevel: one of the requested levels.
- exerciseLabel: short title describing the exercise (max 80 characters).`,
		Validators: []Validator{
			RequireNonEmpty("SourceMaterial", func(in Input) string { return in.SourceMaterial }),
			RequireNonEmpty("TaxonomyLevelsCSV", func(in Input) string { return in.TaxonomyLevelsCSV }),
			RequirePositive("RequestedCount", func(in Input) int { return in.RequestedCount }),
		},
	})
}
