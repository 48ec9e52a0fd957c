package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Conversation is one requirement interview between a user and the assistant.
// UserID and ProjectID are fixed at creation.
type Conversation struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	ProjectID *uuid.UUID `db:"project_id" json:"project_id"` // Optional project scope
	Title     string     `db:"title" json:"title"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"` // Touched by every message append
}

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Message is a single append-only entry in a conversation.
// Messages of one conversation are totally ordered by (CreatedAt, Seq).
type Message struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	ConversationID uuid.UUID       `db:"conversation_id" json:"conversation_id"`
	Seq            int64           `db:"seq" json:"-"` // Store-assigned tie breaker for equal timestamps
	Role           MessageRole     `db:"role" json:"role"`
	Content        string          `db:"content" json:"content"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"` // Stored as JSONB
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// RequirementType is the binary classification of a requirement.
type RequirementType string

const (
	RequirementFunctional    RequirementType = "functional"
	RequirementNonFunctional RequirementType = "non_functional"
)

// RequirementPriority ranks a requirement.
type RequirementPriority string

const (
	PriorityHigh   RequirementPriority = "high"
	PriorityMedium RequirementPriority = "medium"
	PriorityLow    RequirementPriority = "low"
)

// RequirementStatus tracks review progress of a requirement.
type RequirementStatus string

const (
	StatusDraft    RequirementStatus = "draft"
	StatusReview   RequirementStatus = "review"
	StatusApproved RequirementStatus = "approved"
)

// Requirement is a classified requirement record owned by a project.
type Requirement struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	ProjectID       uuid.UUID           `db:"project_id" json:"project_id"`
	Type            RequirementType     `db:"type" json:"type"`
	Category        *string             `db:"category" json:"category"` // Only set for non-functional items
	Priority        RequirementPriority `db:"priority" json:"priority"`
	Title           string              `db:"title" json:"title"`
	Description     string              `db:"description" json:"description"`
	Status          RequirementStatus   `db:"status" json:"status"`
	ConfidenceScore *int                `db:"confidence_score" json:"confidence_score"` // 0-100, nullable
	CreatedBy       uuid.UUID           `db:"created_by" json:"created_by"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// Project is the minimal projection of a project this service reads.
// Projects are managed elsewhere.
type Project struct {
	ID     uuid.UUID   `db:"id" json:"id"`
	UserID *uuid.UUID  `db:"user_id" json:"user_id"`
	Name   string      `db:"name" json:"name"`
	Type   ProjectType `db:"type" json:"type"`
}
