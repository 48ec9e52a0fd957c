package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"reqnexa-backend/internal/config"
	"reqnexa-backend/internal/handlers"
	"reqnexa-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ChatHandler *handlers.ChatHandler
	Health      HealthChecker
	Config      *config.Config
}

// HealthChecker is satisfied by store.Store.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	if deps.ChatHandler == nil {
		panic("ChatHandler dependency is nil in router setup")
	}
	if deps.Config == nil {
		panic("Config dependency is nil in router setup")
	}
	if deps.Health == nil {
		panic("Health dependency is nil in router setup")
	}

	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	// Provider calls are bounded per attempt inside the gateway.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyKeyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes (No JWT Required) ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := deps.Health.Ping(ctx); err != nil {
			log.Printf("ERROR [Health] Store ping failed: %v", err)
			httputil.RespondText(w, http.StatusServiceUnavailable, "UNAVAILABLE")
			return
		}
		httputil.RespondText(w, http.StatusOK, "OK")
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		r.Route("/chat", func(r chi.Router) {
			r.Post("/start", deps.ChatHandler.HandleStartConversation)
			r.Post("/message", deps.ChatHandler.HandleSendMessage)
			r.Get("/", deps.ChatHandler.HandleListConversations)
			r.Get("/{conversationID}", deps.ChatHandler.HandleGetHistory)
			r.Post("/{conversationID}/resume", deps.ChatHandler.HandleResumeConversation)
			r.Post("/{conversationID}/extract", deps.ChatHandler.HandleExtractRequirements)
		})
	})

	return r
}
