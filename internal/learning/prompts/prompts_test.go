package prompts

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildReviewSessions(t *testing.T) {
	p, err := Build(PromptReviewSessions, Input{
		SourceMaterial:    "Photosynthesis converts light into chemical energy.",
		RequestedCount:    3,
		TaxonomyLevelsCSV: "remember, apply",
		TemplatesText:     "- Flashcards: short prompt and answer",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.SchemaName != "review_sessions" || p.Version != 1 {
		t.Fatalf("unexpected prompt header %+v", p)
	}
	for _, want := range []string{"Photosynthesis", "exactly 3 review sessions", "remember, apply", "Flashcards"} {
		if !strings.Contains(p.User, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, p.User)
		}
	}
	if !strings.Contains(p.System, "Bloom's taxonomy") {
		t.Fatalf("system prompt missing taxonomy role")
	}
	if p.Fingerprint() == "" || len(p.Fingerprint()) != 64 {
		t.Fatalf("bad fingerprint %q", p.Fingerprint())
	}
}

func TestBuildOmitsTemplateSectionWhenEmpty(t *testing.T) {
	p, err := Build(PromptReviewSessions, Input{SourceMaterial: "x", RequestedCount: 1, TaxonomyLevelsCSV: "create"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(p.User, "exercise templates") {
		t.Fatalf("template section rendered without templates:\n%s", p.User)
	}
}

func TestBuildValidatesInput(t *testing.T) {
	cases := map[string]Input{
		"no material": {RequestedCount: 1, TaxonomyLevelsCSV: "remember"},
		"no levels":   {SourceMaterial: "x", RequestedCount: 1},
		"zero count":  {SourceMaterial: "x", TaxonomyLevelsCSV: "remember"},
	}
	for name, in := range cases {
		if _, err := Build(PromptReviewSessions, in); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := Build("nope", Input{}); err == nil {
		t.Fatalf("unknown prompt should fail")
	}
}

func TestReviewSessionsSchemaIsStrict(t *testing.T) {
	schema := ReviewSessionsSchema()
	b, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Required             []string `json:"required"`
		AdditionalProperties bool     `json:"additionalProperties"`
		Properties           struct {
			Sessions struct {
				Items struct {
					Required             []string `json:"required"`
					AdditionalProperties bool     `json:"additionalProperties"`
					Properties           struct {
						TaxonomyLevel struct {
							Enum []string `json:"enum"`
						} `json:"taxonomyLevel"`
					} `json:"properties"`
				} `json:"items"`
			} `json:"sessions"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Required) != 1 || decoded.Required[0] != "sessions" || decoded.AdditionalProperties {
		t.Fatalf("root not strict: %s", b)
	}
	items := decoded.Properties.Sessions.Items
	want := "answers,exerciseLabel,hints,questions,taxonomyLevel"
	if strings.Join(items.Required, ",") != want || items.AdditionalProperties {
		t.Fatalf("items not strict: required=%v", items.Required)
	}
	if len(items.Properties.TaxonomyLevel.Enum) != 6 {
		t.Fatalf("taxonomy enum = %v", items.Properties.TaxonomyLevel.Enum)
	}
}
