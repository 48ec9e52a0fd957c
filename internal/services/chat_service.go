package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"reqnexa-backend/internal/interview"
	"reqnexa-backend/internal/llm"
	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Custom errors for the chat service
var (
	ErrValidation           = errors.New("validation failed")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrProjectNotFound      = errors.New("project not found")
)

const (
	// HistoryWindow is how many recent messages are replayed to the gateway.
	HistoryWindow     = 10
	conversationTitle = "Requirement Gathering"
)

// ChatService defines the conversation operations exposed over HTTP.
type ChatService interface {
	StartConversation(ctx context.Context, userID uuid.UUID, req models.StartConversationRequest) (*models.StartConversationResponse, error)
	SendMessage(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*models.SendMessageResponse, error)
	GetHistory(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) ([]models.Message, error)
	ResumeConversation(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (string, error)
	ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error)
	ExtractRequirements(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (*models.ExtractRequirementsResponse, error)
}

type chatService struct {
	store       store.Store
	gateway     llm.Gateway
	idempotency store.IdempotencyStore // nil disables Idempotency-Key handling
	catalogue   *interview.Catalogue
	now         func() time.Time
}

// NewChatService creates a new ChatService. idempotency may be nil.
func NewChatService(s store.Store, gateway llm.Gateway, idempotency store.IdempotencyStore) ChatService {
	return &chatService{
		store:       s,
		gateway:     gateway,
		idempotency: idempotency,
		catalogue:   interview.DefaultCatalogue(),
		now:         time.Now,
	}
}

// StartConversation generates the opening question first and only then
// writes the conversation together with that message, so a failed generation
// leaves nothing behind.
func (s *chatService) StartConversation(ctx context.Context, userID uuid.UUID, req models.StartConversationRequest) (*models.StartConversationResponse, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	projectType, err := models.ParseProjectType(string(req.ProjectType))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.ProjectID != nil {
		if err := s.requireProject(ctx, userID, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	stage := s.catalogue.ForMessageCount(0)
	opening, err := s.gateway.GenerateReply(ctx, nil, projectType, stage.Name)
	if err != nil {
		log.Printf("ERROR [ChatService] StartConversation: Opening generation failed for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to generate opening message: %w", err)
	}
	if strings.TrimSpace(opening) == "" {
		return nil, fmt.Errorf("failed to generate opening message: %w", llm.ErrEmptyResponse)
	}

	conv, msg, err := s.store.CreateConversation(ctx, store.CreateConversationParams{
		ID:             uuid.New(),
		UserID:         userID,
		ProjectID:      req.ProjectID,
		Title:          conversationTitle,
		OpeningMessage: opening,
		Metadata:       s.encodeMetadata(models.MessageMetadata{Stage: string(stage.Name)}),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, req.ProjectID)
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	log.Printf("[ChatService] StartConversation: Conversation %s started for UserID %s (project_type=%s)", conv.ID, userID, projectType)
	return &models.StartConversationResponse{
		ConversationID: conv.ID,
		FirstMessage:   msg.Content,
		MessageID:      msg.ID,
	}, nil
}

// SendMessage runs one turn. The user message is stored before anything is
// generated; the turn is not transactional, so a failure later in the turn
// leaves the user message without a reply.
func (s *chatService) SendMessage(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*models.SendMessageResponse, error) {
	text := strings.TrimSpace(req.Message)
	if req.ConversationID == uuid.Nil {
		return nil, fmt.Errorf("%w: conversation_id is required", ErrValidation)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: message cannot be empty", ErrValidation)
	}
	projectType, err := models.ParseProjectType(string(req.ProjectType.OrOther()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	conv, err := s.loadConversation(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	// A conversation bound to a project at start stays on it.
	projectID := conv.ProjectID
	if req.ProjectID != nil {
		if conv.ProjectID != nil && *conv.ProjectID != *req.ProjectID {
			return nil, fmt.Errorf("%w: project_id does not match the conversation's project", ErrValidation)
		}
		if err := s.requireProject(ctx, userID, *req.ProjectID); err != nil {
			return nil, err
		}
		projectID = req.ProjectID
	}

	requestHash := hashTurnRequest(text, projectID, projectType)
	cached, ok, err := s.lookupIdempotent(ctx, userID, conv.ID, req.IdempotencyKey, requestHash)
	if err != nil {
		return nil, err
	}
	if ok {
		log.Printf("[ChatService] SendMessage: Replaying stored response for ConversationID %s", conv.ID)
		return cached, nil
	}

	if _, err := s.store.AppendMessage(ctx, store.AppendMessageParams{
		ConversationID: conv.ID,
		Role:           models.RoleUser,
		Content:        text,
	}); err != nil {
		return nil, s.conversationError("append user message", conv.ID, err)
	}

	stage, history, err := s.loadContext(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	reply, err := s.gateway.GenerateReply(ctx, history, projectType, stage.Name)
	if err != nil {
		log.Printf("ERROR [ChatService] SendMessage: Reply generation failed for ConversationID %s: %v", conv.ID, err)
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	var extracted *models.ExtractedRequirementRef
	if interview.LooksLikeRequirement(text) && projectID != nil {
		extracted, err = s.extractRequirement(ctx, userID, *projectID, text)
		if err != nil {
			return nil, err
		}
	}

	suggestions, err := s.gateway.GenerateFollowUps(ctx, text, projectType)
	if err != nil {
		log.Printf("WARN [ChatService] SendMessage: Follow-ups unavailable for ConversationID %s: %v", conv.ID, err)
		suggestions = nil
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	if len(suggestions) > llm.MaxFollowUps {
		suggestions = suggestions[:llm.MaxFollowUps]
	}

	if _, err := s.store.AppendMessage(ctx, store.AppendMessageParams{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
		Metadata: s.encodeMetadata(models.MessageMetadata{
			ExtractedRequirement: extracted,
			SuggestedReplies:     suggestions,
			Stage:                string(stage.Name),
		}),
	}); err != nil {
		return nil, s.conversationError("append assistant message", conv.ID, err)
	}

	resp := &models.SendMessageResponse{
		BotResponse:          reply,
		SuggestedReplies:     suggestions,
		ExtractedRequirement: extracted,
	}
	s.storeIdempotent(ctx, userID, conv.ID, req.IdempotencyKey, requestHash, resp)
	return resp, nil
}

// extractRequirement classifies a requirement-bearing message and stores at
// most one requirement for it. Classification failures skip extraction;
// store failures fail the turn.
func (s *chatService) extractRequirement(ctx context.Context, userID, projectID uuid.UUID, text string) (*models.ExtractedRequirementRef, error) {
	classification, err := s.gateway.Classify(ctx, text)
	if err != nil {
		log.Printf("WARN [ChatService] Classification skipped for ProjectID %s: %v", projectID, err)
		return nil, nil
	}
	if classification == nil || (classification.Type != models.RequirementFunctional && classification.Type != models.RequirementNonFunctional) {
		log.Printf("WARN [ChatService] Classification returned no usable type for ProjectID %s", projectID)
		return nil, nil
	}

	title := strings.TrimSpace(classification.Title)
	if title == "" {
		title = llm.Truncate(text, llm.MaxTitleLength)
	}
	description := strings.TrimSpace(classification.Description)
	if description == "" {
		description = text
	}
	confidence := llm.DefaultConfidence
	if classification.Confidence != nil {
		confidence = llm.ClampConfidence(*classification.Confidence)
	}
	var category *string
	if classification.Type == models.RequirementNonFunctional {
		category = classification.Subcategory
	}

	id, err := s.store.InsertRequirement(ctx, store.InsertRequirementParams{
		ProjectID:       projectID,
		Type:            classification.Type,
		Category:        category,
		Priority:        models.PriorityMedium,
		Title:           llm.Truncate(title, llm.MaxTitleLength),
		Description:     description,
		Status:          models.StatusDraft,
		ConfidenceScore: &confidence,
		CreatedBy:       userID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return nil, fmt.Errorf("failed to insert requirement: %w", err)
	}

	log.Printf("[ChatService] Requirement %s (%s) extracted for ProjectID %s", id, classification.Type, projectID)
	return &models.ExtractedRequirementRef{
		ID:          id,
		Type:        classification.Type,
		Subcategory: category,
		Confidence:  confidence,
	}, nil
}

// GetHistory returns every message of the conversation in creation order.
func (s *chatService) GetHistory(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) ([]models.Message, error) {
	conv, err := s.loadConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// ResumeConversation appends a continuation question without new user input.
// Project type is deliberately "other".
func (s *chatService) ResumeConversation(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (string, error) {
	conv, err := s.loadConversation(ctx, userID, conversationID)
	if err != nil {
		return "", err
	}
	stage, history, err := s.loadContext(ctx, conv.ID)
	if err != nil {
		return "", err
	}

	reply, err := s.gateway.GenerateReply(ctx, history, models.ProjectTypeOther, stage.Name)
	if err != nil {
		log.Printf("ERROR [ChatService] ResumeConversation: Generation failed for ConversationID %s: %v", conv.ID, err)
		return "", fmt.Errorf("failed to generate continuation: %w", err)
	}
	if _, err := s.store.AppendMessage(ctx, store.AppendMessageParams{
		ConversationID: conv.ID,
		Role:           models.RoleAssistant,
		Content:        reply,
		Metadata:       s.encodeMetadata(models.MessageMetadata{Stage: string(stage.Name)}),
	}); err != nil {
		return "", s.conversationError("append continuation", conv.ID, err)
	}
	return reply, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *chatService) ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	conversations, err := s.store.ListConversations(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// ExtractRequirements runs batch extraction over the whole conversation.
// The drafts are advisory and never persisted.
func (s *chatService) ExtractRequirements(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (*models.ExtractRequirementsResponse, error) {
	messages, err := s.GetHistory(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	drafts, err := s.gateway.ExtractRequirements(ctx, messages)
	if err != nil {
		log.Printf("WARN [ChatService] ExtractRequirements: Extraction failed for ConversationID %s: %v", conversationID, err)
		drafts = nil
	}
	if drafts == nil {
		drafts = []models.RequirementDraft{}
	}
	return &models.ExtractRequirementsResponse{
		ConversationID: conversationID,
		Requirements:   drafts,
		ExtractedAt:    s.now().UTC(),
	}, nil
}

// --- Helpers ---

func (s *chatService) loadConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("%w: conversation_id is required", ErrValidation)
	}
	conv, err := s.store.GetConversation(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
		}
		log.Printf("ERROR [ChatService] Failed to load ConversationID %s: %v", conversationID, err)
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

// requireProject reports a project owned by someone else as not found.
func (s *chatService) requireProject(ctx context.Context, userID, projectID uuid.UUID) error {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return fmt.Errorf("failed to verify project: %w", err)
	}
	if project.UserID == nil || *project.UserID != userID {
		log.Printf("WARN [ChatService] UserID %s referenced ProjectID %s it does not own", userID, projectID)
		return fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return nil
}

// loadContext returns the stage for the full conversation length and the
// bounded history window replayed to the gateway.
func (s *chatService) loadContext(ctx context.Context, conversationID uuid.UUID) (interview.Stage, []models.Message, error) {
	count, err := s.store.CountMessages(ctx, conversationID)
	if err != nil {
		return interview.Stage{}, nil, fmt.Errorf("failed to count messages: %w", err)
	}
	history, err := s.store.LastMessages(ctx, conversationID, HistoryWindow)
	if err != nil {
		return interview.Stage{}, nil, fmt.Errorf("failed to load history: %w", err)
	}
	return s.catalogue.ForMessageCount(count), history, nil
}

func (s *chatService) conversationError(op string, conversationID uuid.UUID, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	log.Printf("ERROR [ChatService] %s failed for ConversationID %s: %v", op, conversationID, err)
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *chatService) encodeMetadata(meta models.MessageMetadata) json.RawMessage {
	raw, err := json.Marshal(meta)
	if err != nil {
		log.Printf("WARN [ChatService] Failed to encode message metadata: %v", err)
		return nil
	}
	return raw
}

// idempotentTurn is what the idempotency store keeps for a completed turn.
type idempotentTurn struct {
	RequestHash string                     `json:"request_hash"`
	Response    models.SendMessageResponse `json:"response"`
}

// hashTurnRequest fingerprints the parts of a send that shape its response.
func hashTurnRequest(text string, projectID *uuid.UUID, projectType models.ProjectType) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(text))
	h.Write([]byte{0})
	if projectID != nil {
		h.Write([]byte(projectID.String()))
	}
	h.Write([]byte{0})
	h.Write([]byte(projectType))
	return hex.EncodeToString(h.Sum(nil))
}

// lookupIdempotent returns the stored response for key. A key reused with a
// different request is a validation error; cache failures are ignored.
func (s *chatService) lookupIdempotent(ctx context.Context, userID, conversationID uuid.UUID, key, requestHash string) (*models.SendMessageResponse, bool, error) {
	if key == "" || s.idempotency == nil {
		return nil, false, nil
	}
	raw, ok, err := s.idempotency.Get(ctx, userID, conversationID, key)
	if err != nil {
		log.Printf("WARN [ChatService] Idempotency lookup failed, processing normally: %v", err)
		return nil, false, nil
	}
	if !ok {
		return nil, false, nil
	}
	var turn idempotentTurn
	if err := json.Unmarshal(raw, &turn); err != nil {
		log.Printf("WARN [ChatService] Stored idempotent response is unreadable, processing normally: %v", err)
		return nil, false, nil
	}
	if turn.RequestHash != requestHash {
		return nil, false, fmt.Errorf("%w: Idempotency-Key was already used for a different message", ErrValidation)
	}
	return &turn.Response, true, nil
}

func (s *chatService) storeIdempotent(ctx context.Context, userID, conversationID uuid.UUID, key, requestHash string, resp *models.SendMessageResponse) {
	if key == "" || s.idempotency == nil {
		return
	}
	raw, err := json.Marshal(idempotentTurn{RequestHash: requestHash, Response: *resp})
	if err != nil {
		log.Printf("WARN [ChatService] Failed to encode response for idempotency: %v", err)
		return
	}
	if err := s.idempotency.Put(ctx, userID, conversationID, key, raw); err != nil {
		log.Printf("WARN [ChatService] Failed to store idempotent response: %v", err)
	}
}
