package prompts

// Input carries the fields prompt templates may reference.
// Missing fields render empty strings (templates use missingkey=zero).
type Input struct {
	// Full source material of the study plan.
	SourceMaterial string
	// Number of sessions the model must return.
	RequestedCount int
	// Comma separated taxonomy levels, in canonical order.
	TaxonomyLevelsCSV string
	// One "- name: description" line per requested exercise template.
	TemplatesText string
}
