package models

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// --- Chat DTOs ---

// StartConversationRequest defines the body of POST /chat/start.
type StartConversationRequest struct {
	ProjectID   *uuid.UUID  `json:"project_id,omitempty"`
	ProjectType ProjectType `json:"project_type"`
}

// StartConversationResponse is returned once the opening assistant message is stored.
type StartConversationResponse struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	FirstMessage   string    `json:"first_message"`
	MessageID      uuid.UUID `json:"message_id"`
}

// SendMessageRequest defines the body of POST /chat/message.
type SendMessageRequest struct {
	ConversationID uuid.UUID   `json:"conversation_id"`
	Message        string      `json:"message"`
	ProjectID      *uuid.UUID  `json:"project_id,omitempty"`
	ProjectType    ProjectType `json:"project_type,omitempty"` // Defaults to "other"
	// IdempotencyKey is taken from the Idempotency-Key header, never from the body.
	IdempotencyKey string `json:"-"`
}

// ExtractedRequirementRef references a requirement created during a turn.
type ExtractedRequirementRef struct {
	ID          uuid.UUID       `json:"id"`
	Type        RequirementType `json:"type"`
	Subcategory *string         `json:"subcategory"`
	Confidence  int             `json:"confidence"`
}

// SendMessageResponse is the result of one conversational turn.
type SendMessageResponse struct {
	BotResponse          string                   `json:"bot_response"`
	SuggestedReplies     []string                 `json:"suggested_replies"`
	ExtractedRequirement *ExtractedRequirementRef `json:"extracted_requirement"`
}

// MessageMetadata is the JSON shape stored in Message.Metadata for assistant replies.
type MessageMetadata struct {
	ExtractedRequirement *ExtractedRequirementRef `json:"extracted_requirement"`
	SuggestedReplies     []string                 `json:"suggested_replies,omitempty"`
	Stage                string                   `json:"stage,omitempty"`
}

// ConversationHistoryResponse is returned by GET /chat/:conversation_id.
type ConversationHistoryResponse struct {
	Messages []Message `json:"messages"`
}

// ResumeConversationResponse is returned by POST /chat/:conversation_id/resume.
type ResumeConversationResponse struct {
	Message string `json:"message"`
}

// ListConversationsResponse is returned by GET /chat.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// RequirementDraft is an unpersisted requirement proposed by batch extraction.
type RequirementDraft struct {
	Type        RequirementType     `json:"type"`
	Category    *string             `json:"category"`
	Priority    RequirementPriority `json:"priority"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Confidence  *int                `json:"confidence"`
}

// ExtractRequirementsResponse is returned by POST /chat/:conversation_id/extract.
type ExtractRequirementsResponse struct {
	ConversationID uuid.UUID          `json:"conversation_id"`
	Requirements   []RequirementDraft `json:"requirements"`
	ExtractedAt    time.Time          `json:"extracted_at"`
}
