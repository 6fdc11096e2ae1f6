package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
)

func TestEmbeddedCatalogParses(t *testing.T) {
	rows, err := ParseTemplates(exerciseTemplatesYAML)
	if err != nil {
		t.Fatalf("ParseTemplates: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected 6 templates, got %d", len(rows))
	}
	for _, r := range rows {
		if r.DefaultTaxonomyLevel == nil || !r.IsActive {
			t.Fatalf("template %q: level=%v active=%v", r.Name, r.DefaultTaxonomyLevel, r.IsActive)
		}
	}
}

func TestParseTemplatesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"duplicate": "templates:\n  - name: A\n  - name: a\n",
		"no name":   "templates:\n  - description: x\n",
		"bad level": "templates:\n  - name: A\n    default_taxonomy_level: memorize\n",
	}
	for name, raw := range cases {
		if _, err := ParseTemplates([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	rows, err := ParseTemplates([]byte("templates:\n  - name: Off\n    active: false\n"))
	if err != nil || len(rows) != 1 || rows[0].IsActive {
		t.Fatalf("explicit inactive: rows=%v err=%v", rows, err)
	}
}

func TestExerciseTemplatesIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := repos.NewExerciseTemplateRepo(db, testutil.Logger(t))

	for i := 0; i < 2; i++ {
		if _, err := ExerciseTemplates(dbc, testutil.Logger(t), repo); err != nil {
			t.Fatalf("seed run %d: %v", i, err)
		}
	}
	active, err := repo.ListActive(dbc)
	if err != nil || len(active) != 6 {
		t.Fatalf("ListActive: len=%d err=%v", len(active), err)
	}
	if !strings.EqualFold(active[0].Name, "Compare and contrast") {
		t.Fatalf("unexpected first template %q", active[0].Name)
	}
}
