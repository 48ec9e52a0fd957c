package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"reqnexa-backend/internal/auth"
	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/services"
	"reqnexa-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the optional client key for POST /chat/message.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

type ChatHandler struct {
	chatService services.ChatService
}

func NewChatHandler(chatSvc services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatSvc,
	}
}

// HandleStartConversation handles POST /v1/chat/start
func (h *ChatHandler) HandleStartConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	var req models.StartConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.chatService.StartConversation(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, "HandleStartConversation", userID, err, "Failed to start conversation")
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleSendMessage handles POST /v1/chat/message
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	var req models.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		httputil.RespondError(w, http.StatusBadRequest, "Idempotency-Key is too long")
		return
	}

	resp, err := h.chatService.SendMessage(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, "HandleSendMessage", userID, err, "Failed to process message")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetHistory handles GET /v1/chat/{conversationID}
func (h *ChatHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}
	conversationID, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	messages, err := h.chatService.GetHistory(r.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(w, "HandleGetHistory", userID, err, "Failed to get conversation history")
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	httputil.RespondJSON(w, http.StatusOK, models.ConversationHistoryResponse{Messages: messages})
}

// HandleResumeConversation handles POST /v1/chat/{conversationID}/resume
func (h *ChatHandler) HandleResumeConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}
	conversationID, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	message, err := h.chatService.ResumeConversation(r.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(w, "HandleResumeConversation", userID, err, "Failed to resume conversation")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.ResumeConversationResponse{Message: message})
}

// HandleListConversations handles GET /v1/chat?project_id=
func (h *ChatHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}

	var projectID *uuid.UUID
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid project ID format")
			return
		}
		projectID = &id
	}

	conversations, err := h.chatService.ListConversations(r.Context(), userID, projectID)
	if err != nil {
		respondServiceError(w, "HandleListConversations", userID, err, "Failed to list conversations")
		return
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	httputil.RespondJSON(w, http.StatusOK, models.ListConversationsResponse{Conversations: conversations})
}

// HandleExtractRequirements handles POST /v1/chat/{conversationID}/extract
func (h *ChatHandler) HandleExtractRequirements(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "User ID not found in token context")
		return
	}
	conversationID, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	resp, err := h.chatService.ExtractRequirements(r.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(w, "HandleExtractRequirements", userID, err, "Failed to extract requirements")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func conversationIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid conversation ID format")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service sentinels to status codes. Internal
// failures are logged and answered with a generic message.
func respondServiceError(w http.ResponseWriter, op string, userID uuid.UUID, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConversationNotFound), errors.Is(err, services.ErrProjectNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("ERROR [ChatHandler] %s for UserID %s: %v", op, userID, err)
		httputil.RespondError(w, http.StatusInternalServerError, fallback)
	}
}
