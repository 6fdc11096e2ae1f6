package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

//go:embed exercise_templates.yaml
var exerciseTemplatesYAML []byte

type templateFile struct {
	Templates []templateSpec `yaml:"templates"`
}

type templateSpec struct {
	Name                 string `yaml:"name"`
	Description          string `yaml:"description"`
	Prompt               string `yaml:"prompt"`
	DefaultTaxonomyLevel string `yaml:"default_taxonomy_level"`
	Active               *bool  `yaml:"active"`
}

// ParseTemplates decodes a template catalog. Names must be unique and
// levels, when given, must be known taxonomy levels.
func ParseTemplates(raw []byte) ([]*types.ExerciseTemplate, error) {
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	seen := map[string]bool{}
	out := make([]*types.ExerciseTemplate, 0, len(f.Templates))
	for i, spec := range f.Templates {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("template %d: missing name", i)
		}
		if seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("template %q: duplicate name", name)
		}
		seen[strings.ToLower(name)] = true

		t := &types.ExerciseTemplate{
			Name:        name,
			Description: strings.TrimSpace(spec.Description),
			Prompt:      strings.TrimSpace(spec.Prompt),
			IsActive:    spec.Active == nil || *spec.Active,
		}
		if raw := strings.TrimSpace(spec.DefaultTaxonomyLevel); raw != "" {
			level, ok := study.ParseTaxonomyLevel(raw)
			if !ok {
				return nil, fmt.Errorf("template %q: unknown taxonomy level %q", name, raw)
			}
			s := string(level)
			t.DefaultTaxonomyLevel = &s
		}
		out = append(out, t)
	}
	return out, nil
}

// ExerciseTemplates upserts the embedded catalog. Safe to run repeatedly.
func ExerciseTemplates(dbc dbctx.Context, log *logger.Logger, repo repos.ExerciseTemplateRepo) (int, error) {
	rows, err := ParseTemplates(exerciseTemplatesYAML)
	if err != nil {
		return 0, err
	}
	if err := repo.UpsertByName(dbc, rows); err != nil {
		return 0, fmt.Errorf("upsert templates: %w", err)
	}
	if log != nil {
		log.Info("exercise templates seeded", "count", len(rows))
	}
	return len(rows), nil
}
