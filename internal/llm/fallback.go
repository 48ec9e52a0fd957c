package llm

import (
	"context"
	"strings"

	"reqnexa-backend/internal/interview"
	"reqnexa-backend/internal/models"
)

// Fallback is a deterministic Gateway that needs no provider. It serves
// when no API key is configured and as the degraded path of Client.
type Fallback struct {
	catalogue *interview.Catalogue
}

var _ Gateway = (*Fallback)(nil)

// NewFallback creates a Fallback over the given catalogue. Nil uses the
// default catalogue.
func NewFallback(catalogue *interview.Catalogue) *Fallback {
	if catalogue == nil {
		catalogue = interview.DefaultCatalogue()
	}
	return &Fallback{catalogue: catalogue}
}

// GenerateReply asks for clarification of the newest user message when it is
// ambiguous, otherwise it picks an exemplar question of the current stage
// that differs from the last assistant message.
func (f *Fallback) GenerateReply(ctx context.Context, history []models.Message, projectType models.ProjectType, stage interview.StageName) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	current := f.catalogue.Resolve(stage, len(history))

	if lastUser, ok := lastContent(history, models.RoleUser); ok {
		if finding, found := interview.Detect(lastUser); found {
			return finding.Clarification, nil
		}
	}

	questions := current.Questions
	asked := 0
	for _, m := range history {
		if m.Role == models.RoleAssistant {
			asked++
		}
	}
	lastAsked, _ := lastContent(history, models.RoleAssistant)
	lastAsked = strings.TrimSpace(lastAsked)

	for i := 0; i < len(questions); i++ {
		candidate := questions[(asked+i)%len(questions)]
		if candidate != lastAsked {
			return candidate, nil
		}
	}
	return questions[0], nil
}

// GenerateFollowUps uses the static topic table.
func (f *Fallback) GenerateFollowUps(ctx context.Context, requirementText string, projectType models.ProjectType) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FollowUps(requirementText, projectType), nil
}

// Classify uses the keyword heuristic.
func (f *Fallback) Classify(ctx context.Context, text string) (*Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return HeuristicClassify(text), nil
}

// ExtractRequirements proposes one draft per user message that reads like a
// requirement.
func (f *Fallback) ExtractRequirements(ctx context.Context, history []models.Message) ([]models.RequirementDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	drafts := []models.RequirementDraft{}
	for _, m := range history {
		if m.Role != models.RoleUser || !interview.LooksLikeRequirement(m.Content) {
			continue
		}
		c := HeuristicClassify(m.Content)
		drafts = append(drafts, models.RequirementDraft{
			Type:        c.Type,
			Category:    c.Subcategory,
			Priority:    models.PriorityMedium,
			Title:       c.Title,
			Description: c.Description,
			Confidence:  c.Confidence,
		})
	}
	return drafts, nil
}
