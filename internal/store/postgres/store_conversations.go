package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Conversation Methods ---

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (id, user_id, project_id, title)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, project_id, title, created_at, updated_at;
`

const insertMessage = `-- name: InsertMessage :one
INSERT INTO chat_messages (id, conversation_id, role, content, metadata)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, conversation_id, seq, role, content, metadata, created_at;
`

const touchConversation = `-- name: TouchConversation :exec
UPDATE conversations SET updated_at = now() WHERE id = $1;
`

// CreateConversation inserts the conversation and its opening assistant
// message in one transaction.
func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, *models.Message, error) {
	log.Printf("[PostgresStore] CreateConversation called for UserID: %s", arg.UserID)
	var conv models.Conversation
	var msg *models.Message

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, createConversation, arg.ID, arg.UserID, arg.ProjectID, arg.Title).Scan(
			&conv.ID,
			&conv.UserID,
			&conv.ProjectID,
			&conv.Title,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		)
		if err != nil {
			return err
		}
		msg, err = scanMessage(tx.QueryRow(ctx, insertMessage,
			uuid.New(), conv.ID, models.RoleAssistant, arg.OpeningMessage, nullableJSON(arg.Metadata)))
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Printf("WARN [PostgresStore] CreateConversation: Unknown project %v for UserID %s", arg.ProjectID, arg.UserID)
			return nil, nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] CreateConversation: Failed for UserID %s: %v", arg.UserID, err)
		return nil, nil, fmt.Errorf("database error creating conversation: %w", err)
	}

	log.Printf("[PostgresStore] CreateConversation: Created conversation %s", conv.ID)
	return &conv, msg, nil
}

const getConversation = `-- name: GetConversation :one
SELECT id, user_id, project_id, title, created_at, updated_at
FROM conversations
WHERE id = $1 AND user_id = $2;
`

func (s *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.QueryRow(ctx, getConversation, id, userID).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.ProjectID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetConversation: Failed query/scan for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching conversation: %w", err)
	}
	return &conv, nil
}

const listConversations = `-- name: ListConversations :many
SELECT id, user_id, project_id, title, created_at, updated_at
FROM conversations
WHERE user_id = $1 AND ($2::uuid IS NULL OR project_id = $2)
ORDER BY updated_at DESC;
`

func (s *PostgresStore) ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, listConversations, userID, projectID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListConversations: Failed query for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing conversations: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.ProjectID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

// --- Message Methods ---

// AppendMessage inserts a message and bumps the conversation's updated_at.
func (s *PostgresStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.Message, error) {
	var msg *models.Message
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		msg, err = scanMessage(tx.QueryRow(ctx, insertMessage,
			uuid.New(), arg.ConversationID, arg.Role, arg.Content, nullableJSON(arg.Metadata)))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, touchConversation, arg.ConversationID)
		return err
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] AppendMessage: Failed for ConversationID %s: %v", arg.ConversationID, err)
		return nil, fmt.Errorf("database error appending message: %w", err)
	}
	return msg, nil
}

const listMessages = `-- name: ListMessages :many
SELECT id, conversation_id, seq, role, content, metadata, created_at
FROM chat_messages
WHERE conversation_id = $1
ORDER BY created_at ASC, seq ASC;
`

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	return s.queryMessages(ctx, "ListMessages", listMessages, conversationID)
}

const lastMessages = `-- name: LastMessages :many
SELECT id, conversation_id, seq, role, content, metadata, created_at
FROM (
    SELECT id, conversation_id, seq, role, content, metadata, created_at
    FROM chat_messages
    WHERE conversation_id = $1
    ORDER BY created_at DESC, seq DESC
    LIMIT $2
) recent
ORDER BY created_at ASC, seq ASC;
`

// LastMessages returns the newest limit messages, oldest first.
func (s *PostgresStore) LastMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	return s.queryMessages(ctx, "LastMessages", lastMessages, conversationID, limit)
}

const countMessages = `-- name: CountMessages :one
SELECT count(*) FROM chat_messages WHERE conversation_id = $1;
`

func (s *PostgresStore) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, countMessages, conversationID).Scan(&n); err != nil {
		log.Printf("ERROR [PostgresStore] CountMessages: Failed for ConversationID %s: %v", conversationID, err)
		return 0, fmt.Errorf("database error counting messages: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) queryMessages(ctx context.Context, name, query string, args ...any) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("ERROR [PostgresStore] %s: Failed query: %v", name, err)
		return nil, fmt.Errorf("database error listing messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Seq,
		&msg.Role,
		&msg.Content,
		&msg.Metadata,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning message: %w", err)
	}
	return &msg, nil
}

// nullableJSON stores empty metadata as SQL NULL.
func nullableJSON(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
