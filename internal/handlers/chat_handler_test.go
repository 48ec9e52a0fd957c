package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reqnexa-backend/internal/auth"
	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// fakeChatService records the last call and returns canned results.
type fakeChatService struct {
	err error

	gotUserID    uuid.UUID
	gotSend      models.SendMessageRequest
	gotStart     models.StartConversationRequest
	gotProjectID *uuid.UUID
	gotConvID    uuid.UUID
}

func (f *fakeChatService) StartConversation(ctx context.Context, userID uuid.UUID, req models.StartConversationRequest) (*models.StartConversationResponse, error) {
	f.gotUserID, f.gotStart = userID, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.StartConversationResponse{ConversationID: uuid.New(), FirstMessage: "What are you building?", MessageID: uuid.New()}, nil
}

func (f *fakeChatService) SendMessage(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*models.SendMessageResponse, error) {
	f.gotUserID, f.gotSend = userID, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.SendMessageResponse{BotResponse: "Who are the users?", SuggestedReplies: []string{"Admins"}}, nil
}

func (f *fakeChatService) GetHistory(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) ([]models.Message, error) {
	f.gotUserID, f.gotConvID = userID, conversationID
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeChatService) ResumeConversation(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (string, error) {
	f.gotUserID, f.gotConvID = userID, conversationID
	if f.err != nil {
		return "", f.err
	}
	return "Where were we?", nil
}

func (f *fakeChatService) ListConversations(ctx context.Context, userID uuid.UUID, projectID *uuid.UUID) ([]models.Conversation, error) {
	f.gotUserID, f.gotProjectID = userID, projectID
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeChatService) ExtractRequirements(ctx context.Context, userID uuid.UUID, conversationID uuid.UUID) (*models.ExtractRequirementsResponse, error) {
	f.gotUserID, f.gotConvID = userID, conversationID
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExtractRequirementsResponse{ConversationID: conversationID, Requirements: []models.RequirementDraft{}, ExtractedAt: time.Now()}, nil
}

func newTestRouter(h *ChatHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/chat", func(r chi.Router) {
		r.Post("/start", h.HandleStartConversation)
		r.Post("/message", h.HandleSendMessage)
		r.Get("/", h.HandleListConversations)
		r.Get("/{conversationID}", h.HandleGetHistory)
		r.Post("/{conversationID}/resume", h.HandleResumeConversation)
		r.Post("/{conversationID}/extract", h.HandleExtractRequirements)
	})
	return r
}

func serve(t *testing.T, h http.Handler, userID uuid.UUID, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if userID != uuid.Nil {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleStartConversation(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(NewChatHandler(svc))
	userID := uuid.New()

	rec := serve(t, router, userID, http.MethodPost, "/chat/start", `{"project_type":"mobile"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if svc.gotUserID != userID || svc.gotStart.ProjectType != models.ProjectTypeMobile {
		t.Fatalf("service got user %s request %+v", svc.gotUserID, svc.gotStart)
	}
	var resp models.StartConversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.FirstMessage == "" {
		t.Fatalf("response = %s (%v)", rec.Body.String(), err)
	}
}

func TestHandleSendMessage_PassesIdempotencyKey(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(NewChatHandler(svc))
	convID := uuid.New()

	body := fmt.Sprintf(`{"conversation_id":%q,"message":"Users must log in"}`, convID)
	rec := serve(t, router, uuid.New(), http.MethodPost, "/chat/message", body, map[string]string{IdempotencyKeyHeader: " turn-7 "})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if svc.gotSend.ConversationID != convID || svc.gotSend.IdempotencyKey != "turn-7" {
		t.Fatalf("service got %+v", svc.gotSend)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(raw["extracted_requirement"]) != "null" {
		t.Fatalf("extracted_requirement = %s, want null", raw["extracted_requirement"])
	}
}

func TestHandleListConversations_ProjectFilter(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(NewChatHandler(svc))
	projectID := uuid.New()

	rec := serve(t, router, uuid.New(), http.MethodGet, "/chat/?project_id="+projectID.String(), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.gotProjectID == nil || *svc.gotProjectID != projectID {
		t.Fatalf("project filter = %v, want %s", svc.gotProjectID, projectID)
	}
	if !strings.Contains(rec.Body.String(), `"conversations":[]`) {
		t.Fatalf("body = %s, want an empty conversations array", rec.Body.String())
	}

	rec = serve(t, router, uuid.New(), http.MethodGet, "/chat/?project_id=nope", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status for bad project_id = %d, want 400", rec.Code)
	}
}

func TestHandleGetHistory_EmptyArray(t *testing.T) {
	router := newTestRouter(NewChatHandler(&fakeChatService{}))
	rec := serve(t, router, uuid.New(), http.MethodGet, "/chat/"+uuid.NewString(), "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"messages":[]`) {
		t.Fatalf("GET history = %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandleResumeAndExtract(t *testing.T) {
	svc := &fakeChatService{}
	router := newTestRouter(NewChatHandler(svc))
	convID := uuid.New()

	rec := serve(t, router, uuid.New(), http.MethodPost, "/chat/"+convID.String()+"/resume", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Where were we?") {
		t.Fatalf("resume = %d %s", rec.Code, rec.Body.String())
	}
	if svc.gotConvID != convID {
		t.Fatalf("resume conversation = %s, want %s", svc.gotConvID, convID)
	}

	rec = serve(t, router, uuid.New(), http.MethodPost, "/chat/"+convID.String()+"/extract", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"requirements":[]`) {
		t.Fatalf("extract = %d %s", rec.Code, rec.Body.String())
	}
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		target string
		body   string
		want   int
	}{
		{"validation", fmt.Errorf("%w: message cannot be empty", services.ErrValidation), http.MethodPost, "/chat/message", `{}`, http.StatusBadRequest},
		{"conversation not found", fmt.Errorf("%w: x", services.ErrConversationNotFound), http.MethodGet, "/chat/" + uuid.NewString(), "", http.StatusNotFound},
		{"project not found", fmt.Errorf("%w: x", services.ErrProjectNotFound), http.MethodPost, "/chat/start", `{"project_type":"web"}`, http.StatusNotFound},
		{"internal", fmt.Errorf("failed to list messages: %w", errBoom), http.MethodPost, "/chat/" + uuid.NewString() + "/resume", "", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		router := newTestRouter(NewChatHandler(&fakeChatService{err: tt.err}))
		rec := serve(t, router, uuid.New(), tt.method, tt.target, tt.body, nil)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if tt.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "boom") {
			t.Errorf("%s: internal error leaked: %s", tt.name, rec.Body.String())
		}
	}
}

func TestChatHandler_BadInput(t *testing.T) {
	router := newTestRouter(NewChatHandler(&fakeChatService{}))
	userID := uuid.New()

	tests := []struct {
		name   string
		userID uuid.UUID
		method string
		target string
		body   string
		header map[string]string
		want   int
	}{
		{"no user in context", uuid.Nil, http.MethodPost, "/chat/start", `{"project_type":"web"}`, nil, http.StatusUnauthorized},
		{"malformed json", userID, http.MethodPost, "/chat/message", `{"message":`, nil, http.StatusBadRequest},
		{"bad conversation id", userID, http.MethodGet, "/chat/not-a-uuid", "", nil, http.StatusBadRequest},
		{"long idempotency key", userID, http.MethodPost, "/chat/message", `{}`, map[string]string{IdempotencyKeyHeader: strings.Repeat("k", 200)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := serve(t, router, tt.userID, tt.method, tt.target, tt.body, tt.header)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
	}
}

var errBoom = fmt.Errorf("boom")
