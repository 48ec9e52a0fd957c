package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"reqnexa-backend/internal/models"
)

func TestHeuristicClassify(t *testing.T) {
	tests := []struct {
		text        string
		wantType    models.RequirementType
		subcategory string
	}{
		{"Users must log in with email and password", models.RequirementFunctional, ""},
		{"The system shall encrypt data at rest", models.RequirementNonFunctional, "security"},
		{"Response time should stay below 200ms", models.RequirementNonFunctional, "performance"},
		{"We need 99.9% uptime", models.RequirementNonFunctional, "reliability"},
		{"The UI must meet WCAG 2.1 AA", models.RequirementNonFunctional, "accessibility"},
		{"Admins should export orders to CSV", models.RequirementFunctional, ""},
	}
	for _, tt := range tests {
		got := HeuristicClassify(tt.text)
		if got.Type != tt.wantType {
			t.Errorf("HeuristicClassify(%q).Type = %q, want %q", tt.text, got.Type, tt.wantType)
		}
		switch {
		case tt.subcategory == "" && got.Subcategory != nil:
			t.Errorf("HeuristicClassify(%q).Subcategory = %q, want nil", tt.text, *got.Subcategory)
		case tt.subcategory != "" && (got.Subcategory == nil || *got.Subcategory != tt.subcategory):
			t.Errorf("HeuristicClassify(%q).Subcategory = %v, want %q", tt.text, got.Subcategory, tt.subcategory)
		}
		if got.Confidence == nil || *got.Confidence != DefaultConfidence {
			t.Errorf("HeuristicClassify(%q).Confidence = %v, want %d", tt.text, got.Confidence, DefaultConfidence)
		}
		if got.Description != tt.text {
			t.Errorf("HeuristicClassify(%q).Description = %q", tt.text, got.Description)
		}
	}
}

func TestHeuristicClassify_TitleIsTruncated(t *testing.T) {
	text := "Users must " + strings.Repeat("é", 120)
	got := HeuristicClassify(text)
	if n := utf8.RuneCountInString(got.Title); n > MaxTitleLength {
		t.Fatalf("title has %d runes, want at most %d", n, MaxTitleLength)
	}
	if !utf8.ValidString(got.Title) {
		t.Fatalf("title %q is not valid UTF-8", got.Title)
	}
}

func TestParseClassification_Rejects(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"type": "maybe"}`, `{"type": `} {
		if _, err := parseClassification(raw, "text"); err == nil {
			t.Errorf("parseClassification(%q) error = nil, want error", raw)
		}
	}
}

func TestParseClassification_FillsBlanks(t *testing.T) {
	got, err := parseClassification(`{"type": "functional", "subcategory": "security", "confidence": -5}`, "Users must reset passwords")
	if err != nil {
		t.Fatalf("parseClassification() error = %v", err)
	}
	if got.Subcategory != nil {
		t.Errorf("Subcategory = %q, want nil for functional", *got.Subcategory)
	}
	if got.Confidence == nil || *got.Confidence != 0 {
		t.Errorf("Confidence = %v, want clamped 0", got.Confidence)
	}
	if got.Title != "Users must reset passwords" || got.Description != "Users must reset passwords" {
		t.Errorf("Title/Description = %q/%q", got.Title, got.Description)
	}
}

func TestParseRequirementType(t *testing.T) {
	tests := []struct {
		in   string
		want models.RequirementType
		ok   bool
	}{
		{"functional", models.RequirementFunctional, true},
		{"Functional", models.RequirementFunctional, true},
		{"non_functional", models.RequirementNonFunctional, true},
		{"Non-Functional", models.RequirementNonFunctional, true},
		{"non functional", models.RequirementNonFunctional, true},
		{"quality", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRequirementType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRequirementType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
