package interview

import (
	"strings"
	"testing"
)

func TestDefaultCatalogue_Order(t *testing.T) {
	want := []StageName{
		StageIntroduction,
		StageCoreFunctionality,
		StageUserRoles,
		StageNonFunctional,
		StageIntegrations,
		StageConstraints,
		StageErrorHandling,
		StageCompletion,
	}
	stages := DefaultCatalogue().Stages()
	if len(stages) != len(want) {
		t.Fatalf("len(Stages()) = %d, want %d", len(stages), len(want))
	}
	for i, stage := range stages {
		if stage.Name != want[i] {
			t.Fatalf("Stages()[%d] = %q, want %q", i, stage.Name, want[i])
		}
	}
}

func TestForMessageCount_Thresholds(t *testing.T) {
	tests := []struct {
		count int
		want  StageName
	}{
		{0, StageIntroduction},
		{3, StageIntroduction},
		{4, StageCoreFunctionality},
		{11, StageCoreFunctionality},
		{12, StageUserRoles},
		{18, StageNonFunctional},
		{24, StageIntegrations},
		{30, StageConstraints},
		{35, StageErrorHandling},
		{39, StageErrorHandling},
		{40, StageCompletion},
		{500, StageCompletion},
	}
	c := DefaultCatalogue()
	for _, tt := range tests {
		if got := c.ForMessageCount(tt.count).Name; got != tt.want {
			t.Errorf("ForMessageCount(%d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestForMessageCount_NeverRegresses(t *testing.T) {
	c := DefaultCatalogue()
	position := map[StageName]int{}
	for i, stage := range c.Stages() {
		position[stage.Name] = i
	}
	previous := -1
	for count := 0; count <= 100; count++ {
		idx := position[c.ForMessageCount(count).Name]
		if idx < previous {
			t.Fatalf("stage index dropped from %d to %d at count %d", previous, idx, count)
		}
		previous = idx
	}
}

func TestResolve_ExplicitNameWins(t *testing.T) {
	c := DefaultCatalogue()
	if got := c.Resolve(StageConstraints, 0).Name; got != StageConstraints {
		t.Fatalf("Resolve(constraints, 0) = %q, want %q", got, StageConstraints)
	}
	if got := c.Resolve("no_such_stage", 0).Name; got != StageIntroduction {
		t.Fatalf("Resolve(unknown, 0) = %q, want %q", got, StageIntroduction)
	}
}

func TestDefaultCatalogue_StagesHaveContent(t *testing.T) {
	for _, stage := range DefaultCatalogue().Stages() {
		if stage.Objective == "" {
			t.Errorf("stage %q has empty objective", stage.Name)
		}
		if len(stage.SampleQuestions(3)) == 0 {
			t.Errorf("stage %q has no questions", stage.Name)
		}
	}
}

func TestLoadCatalogue_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "stages: []\n", "empty"},
		{"duplicate", "stages:\n  - {name: a, below_messages: 2, objective: o, questions: [q]}\n  - {name: a, objective: o, questions: [q]}\n", "duplicate"},
		{"not increasing", "stages:\n  - {name: a, below_messages: 4, objective: o, questions: [q]}\n  - {name: b, below_messages: 4, objective: o, questions: [q]}\n  - {name: c, objective: o, questions: [q]}\n", "greater"},
		{"bounded terminal", "stages:\n  - {name: a, below_messages: 4, objective: o, questions: [q]}\n", "terminal"},
		{"no questions", "stages:\n  - {name: a, objective: o}\n", "question"},
	}
	for _, tt := range tests {
		_, err := LoadCatalogue([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%s: LoadCatalogue() error = nil, want error containing %q", tt.name, tt.wantErr)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: LoadCatalogue() error = %v, want it to contain %q", tt.name, err, tt.wantErr)
		}
	}
}
