package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"reqnexa-backend/internal/interview"
	"reqnexa-backend/internal/llm"
	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/store"

	"github.com/google/uuid"
)

// memoryStore is an in-memory store.Store.
type memoryStore struct {
	mu            sync.Mutex
	clock         time.Time
	seq           int64
	projects      map[uuid.UUID]models.Project
	conversations map[uuid.UUID]models.Conversation
	messages      map[uuid.UUID][]models.Message
	requirements  []models.Requirement

	failInsertRequirement error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		clock:         time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		projects:      map[uuid.UUID]models.Project{},
		conversations: map[uuid.UUID]models.Conversation{},
		messages:      map[uuid.UUID][]models.Message{},
	}
}

var _ store.Store = (*memoryStore)(nil)

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryStore) addProject(owner uuid.UUID, pt models.ProjectType) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.projects[id] = models.Project{ID: id, UserID: &owner, Name: "Project", Type: pt}
	return id
}

func (m *memoryStore) newMessage(convID uuid.UUID, role models.MessageRole, content string, meta []byte) models.Message {
	m.seq++
	return models.Message{
		ID:             uuid.New(),
		ConversationID: convID,
		Seq:            m.seq,
		Role:           role,
		Content:        content,
		Metadata:       meta,
		CreatedAt:      m.tick(),
	}
}

func (m *memoryStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, *models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if arg.ProjectID != nil {
		if _, ok := m.projects[*arg.ProjectID]; !ok {
			return nil, nil, store.ErrNotFound
		}
	}
	now := m.tick()
	conv := models.Conversation{ID: arg.ID, UserID: arg.UserID, ProjectID: arg.ProjectID, Title: arg.Title, CreatedAt: now, UpdatedAt: now}
	msg := m.newMessage(conv.ID, models.RoleAssistant, arg.OpeningMessage, arg.Metadata)
	m.conversations[conv.ID] = conv
	m.messages[conv.ID] = []models.Message{msg}
	return &conv, &msg, nil
}

func (m *memoryStore) GetConversation(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &conv, nil
}

func (m *memoryStore) ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Conversation{}
	for _, conv := range m.conversations {
		if conv.UserID != userID {
			continue
		}
		if projectID != nil && (conv.ProjectID == nil || *conv.ProjectID != *projectID) {
			continue
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memoryStore) AppendMessage(ctx context.Context, arg store.AppendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[arg.ConversationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	msg := m.newMessage(arg.ConversationID, arg.Role, arg.Content, arg.Metadata)
	m.messages[arg.ConversationID] = append(m.messages[arg.ConversationID], msg)
	conv.UpdatedAt = msg.CreatedAt
	m.conversations[conv.ID] = conv
	return &msg, nil
}

func (m *memoryStore) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message{}, m.messages[conversationID]...), nil
}

func (m *memoryStore) LastMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.messages[conversationID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.Message{}, all...), nil
}

func (m *memoryStore) CountMessages(ctx context.Context, conversationID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[conversationID]), nil
}

func (m *memoryStore) InsertRequirement(ctx context.Context, arg store.InsertRequirementParams) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertRequirement != nil {
		return uuid.Nil, m.failInsertRequirement
	}
	if _, ok := m.projects[arg.ProjectID]; !ok {
		return uuid.Nil, store.ErrNotFound
	}
	id := uuid.New()
	now := m.tick()
	m.requirements = append(m.requirements, models.Requirement{
		ID: id, ProjectID: arg.ProjectID, Type: arg.Type, Category: arg.Category, Priority: arg.Priority,
		Title: arg.Title, Description: arg.Description, Status: arg.Status, ConfidenceScore: arg.ConfidenceScore,
		CreatedBy: arg.CreatedBy, CreatedAt: now, UpdatedAt: now,
	})
	return id, nil
}

func (m *memoryStore) ListRequirementsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Requirement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Requirement{}
	for _, r := range m.requirements {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *memoryStore) Ping(ctx context.Context) error { return nil }
func (m *memoryStore) Close()                         {}

// memoryIdempotency is an in-memory store.IdempotencyStore.
type memoryIdempotency struct {
	mu     sync.Mutex
	values map[string][]byte
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{values: map[string][]byte{}}
}

func (m *memoryIdempotency) Get(ctx context.Context, userID, conversationID uuid.UUID, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID.String()+"/"+conversationID.String()+"/"+key]
	return v, ok, nil
}

func (m *memoryIdempotency) Put(ctx context.Context, userID, conversationID uuid.UUID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID.String() + "/" + conversationID.String() + "/" + key
	if _, ok := m.values[k]; !ok {
		m.values[k] = value
	}
	return nil
}

// stubGateway wraps the deterministic fallback and lets tests override
// individual operations.
type stubGateway struct {
	*llm.Fallback
	replyErr    error
	classifyErr error
	stages      []interview.StageName
}

func newStubGateway() *stubGateway {
	return &stubGateway{Fallback: llm.NewFallback(nil)}
}

func (g *stubGateway) GenerateReply(ctx context.Context, history []models.Message, projectType models.ProjectType, stage interview.StageName) (string, error) {
	g.stages = append(g.stages, stage)
	if g.replyErr != nil {
		return "", g.replyErr
	}
	return g.Fallback.GenerateReply(ctx, history, projectType, stage)
}

func (g *stubGateway) Classify(ctx context.Context, text string) (*llm.Classification, error) {
	if g.classifyErr != nil {
		return nil, g.classifyErr
	}
	return g.Fallback.Classify(ctx, text)
}

var errBoom = errors.New("boom")
