// Package llm turns interview state into generated questions and classifies
// requirement statements. Gateway implementations hold no conversation state,
// so every call can be retried without side effects.
package llm

import (
	"context"
	"errors"

	"reqnexa-backend/internal/interview"
	"reqnexa-backend/internal/models"
)

var (
	ErrRateLimited         = errors.New("llm provider rate limited the request")
	ErrEmptyResponse       = errors.New("llm provider returned an empty response")
	ErrProviderUnavailable = errors.New("llm provider unavailable")
)

// MaxHistoryMessages bounds the history serialized into a prompt.
const MaxHistoryMessages = 10

// Gateway is the contract the conversation orchestrator depends on.
type Gateway interface {
	// GenerateReply produces the next assistant utterance. An empty stage
	// means the stage is derived from len(history).
	GenerateReply(ctx context.Context, history []models.Message, projectType models.ProjectType, stage interview.StageName) (string, error)
	// GenerateFollowUps returns at most three short clarifying prompts.
	GenerateFollowUps(ctx context.Context, requirementText string, projectType models.ProjectType) ([]string, error)
	// Classify labels a requirement statement as functional or non-functional.
	Classify(ctx context.Context, text string) (*Classification, error)
	// ExtractRequirements proposes requirement drafts from a conversation.
	// It returns an empty slice rather than an error when nothing usable comes back.
	ExtractRequirements(ctx context.Context, history []models.Message) ([]models.RequirementDraft, error)
}

// Classification is the transient result of Classify.
type Classification struct {
	Type        models.RequirementType
	Subcategory *string // Only set for non-functional results
	Confidence  *int    // 0-100 when present
	Title       string
	Description string
}
