// Package interview holds the static knowledge that drives a requirement
// interview: the ordered stage catalogue and the ambiguity rule set.
package interview

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed stages.yaml
var catalogueYAML []byte

// StageName identifies an interview stage.
type StageName string

const (
	StageIntroduction      StageName = "introduction"
	StageCoreFunctionality StageName = "core_functionality"
	StageUserRoles         StageName = "user_roles"
	StageNonFunctional     StageName = "non_functional"
	StageIntegrations      StageName = "integrations"
	StageConstraints       StageName = "constraints"
	StageErrorHandling     StageName = "error_handling"
	StageCompletion        StageName = "completion"
)

// Stage describes one phase of the interview.
type Stage struct {
	Name StageName `yaml:"name"`
	// BelowMessages is the exclusive upper bound on conversation length for
	// this stage. Zero marks the terminal stage.
	BelowMessages int      `yaml:"below_messages"`
	Objective     string   `yaml:"objective"`
	Questions     []string `yaml:"questions"`
}

// SampleQuestions returns at most n exemplar questions.
func (s Stage) SampleQuestions(n int) []string {
	if n > len(s.Questions) {
		n = len(s.Questions)
	}
	return s.Questions[:n]
}

// Catalogue is an ordered, validated list of stages.
type Catalogue struct {
	stages []Stage
}

type catalogueFile struct {
	Stages []Stage `yaml:"stages"`
}

var defaultCatalogue = mustLoadCatalogue(catalogueYAML)

// DefaultCatalogue returns the built-in stage catalogue.
func DefaultCatalogue() *Catalogue {
	return defaultCatalogue
}

func mustLoadCatalogue(data []byte) *Catalogue {
	c, err := LoadCatalogue(data)
	if err != nil {
		panic(fmt.Sprintf("FATAL [interview] invalid embedded stage catalogue: %v", err))
	}
	return c
}

// LoadCatalogue parses and validates a YAML stage catalogue. Thresholds must
// be strictly increasing and only the last stage may be unbounded.
func LoadCatalogue(data []byte) (*Catalogue, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse stage catalogue: %w", err)
	}
	if len(file.Stages) == 0 {
		return nil, errors.New("stage catalogue is empty")
	}

	seen := make(map[StageName]bool, len(file.Stages))
	previous := 0
	for i, stage := range file.Stages {
		if stage.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if seen[stage.Name] {
			return nil, fmt.Errorf("duplicate stage %q", stage.Name)
		}
		seen[stage.Name] = true
		if stage.Objective == "" || len(stage.Questions) == 0 {
			return nil, fmt.Errorf("stage %q needs an objective and at least one question", stage.Name)
		}

		last := i == len(file.Stages)-1
		switch {
		case last && stage.BelowMessages != 0:
			return nil, fmt.Errorf("terminal stage %q must not set below_messages", stage.Name)
		case !last && stage.BelowMessages <= previous:
			return nil, fmt.Errorf("stage %q threshold %d must be greater than %d", stage.Name, stage.BelowMessages, previous)
		}
		previous = stage.BelowMessages
	}

	return &Catalogue{stages: file.Stages}, nil
}

// Stages returns a copy of the stages in progression order.
func (c *Catalogue) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// ForMessageCount returns the stage active for a conversation holding
// messageCount messages. The mapping is monotonic in messageCount.
func (c *Catalogue) ForMessageCount(messageCount int) Stage {
	for _, stage := range c.stages {
		if stage.BelowMessages == 0 || messageCount < stage.BelowMessages {
			return stage
		}
	}
	return c.stages[len(c.stages)-1]
}

// Lookup finds a stage by name.
func (c *Catalogue) Lookup(name StageName) (Stage, bool) {
	for _, stage := range c.stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return Stage{}, false
}

// Resolve returns the named stage when it exists, otherwise the stage for
// messageCount.
func (c *Catalogue) Resolve(name StageName, messageCount int) Stage {
	if name != "" {
		if stage, ok := c.Lookup(name); ok {
			return stage
		}
	}
	return c.ForMessageCount(messageCount)
}
