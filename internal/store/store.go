package store

import (
	"context"
	"encoding/json"
	"errors"

	"reqnexa-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// CreateConversationParams contains parameters for opening a conversation.
// The opening assistant message is written in the same transaction.
type CreateConversationParams struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ProjectID      *uuid.UUID
	Title          string
	OpeningMessage string
	Metadata       json.RawMessage // Metadata of the opening message, optional
}

// AppendMessageParams contains parameters for appending a message.
type AppendMessageParams struct {
	ConversationID uuid.UUID
	Role           models.MessageRole
	Content        string
	Metadata       json.RawMessage // Optional, stored as JSON
}

// InsertRequirementParams contains the columns of a new requirement row.
type InsertRequirementParams struct {
	ProjectID       uuid.UUID
	Type            models.RequirementType
	Category        *string
	Priority        models.RequirementPriority
	Title           string
	Description     string
	Status          models.RequirementStatus
	ConfidenceScore *int
	CreatedBy       uuid.UUID
}

// ConversationStore persists conversations and their ordered messages.
// Message lists are always ordered by (created_at, seq) ascending.
type ConversationStore interface {
	CreateConversation(ctx context.Context, arg CreateConversationParams) (*models.Conversation, *models.Message, error)
	// GetConversation returns ErrNotFound unless the conversation exists and belongs to userID.
	GetConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error) // Newest activity first
	AppendMessage(ctx context.Context, arg AppendMessageParams) (*models.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error)
	LastMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error)
	CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error)
}

// RequirementStore persists classified requirements keyed by project.
type RequirementStore interface {
	// InsertRequirement returns ErrNotFound when the project does not exist.
	InsertRequirement(ctx context.Context, arg InsertRequirementParams) (uuid.UUID, error)
	ListRequirementsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Requirement, error)
}

// ProjectStore reads projects, which are managed outside this service.
// Ownership is checked by the caller against Project.UserID.
type ProjectStore interface {
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Store defines the interface for database operations.
// This allows for mocking in tests and switching between Postgres and SQLite.
type Store interface {
	ConversationStore
	RequirementStore
	ProjectStore

	Ping(ctx context.Context) error
	Close()
}

// IdempotencyStore remembers completed turns per (user, conversation, key).
type IdempotencyStore interface {
	// Get returns ok=false when nothing is stored for the key.
	Get(ctx context.Context, userID, conversationID uuid.UUID, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, userID, conversationID uuid.UUID, key string, value []byte) error
}
