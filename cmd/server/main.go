package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reqnexa-backend/internal/api"
	"reqnexa-backend/internal/config"
	"reqnexa-backend/internal/handlers"
	"reqnexa-backend/internal/llm"
	"reqnexa-backend/internal/services"
	"reqnexa-backend/internal/store"
	"reqnexa-backend/internal/store/postgres"
	"reqnexa-backend/internal/store/redis"
	"reqnexa-backend/internal/store/sqlite"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	migrate := pflag.Bool("migrate", false, "apply the embedded Postgres schema before serving")
	pflag.Parse()

	log.Println("Starting ReqNexa Backend...")

	// 1. Load Configuration
	config.LoadEnvFile(*envFile)
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Storage
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()

	chatStore, err := openStore(initCtx, cfg, *migrate)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer chatStore.Close()

	idempotency, closeIdempotency, err := openIdempotency(initCtx, cfg)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer closeIdempotency()

	// 3. Initialize Gateway, Services, Handlers
	gateway, err := newGateway(initCtx, cfg)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	chatService := services.NewChatService(chatStore, gateway, idempotency)
	log.Println("ChatService initialized.")
	chatHandler := handlers.NewChatHandler(chatService)
	log.Println("ChatHandler initialized.")

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler: chatHandler,
		Health:      chatStore,
		Config:      cfg,
	})
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Provider retries can take tens of seconds per turn.
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}

func openStore(ctx context.Context, cfg *config.Config, migrate bool) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		st, err := sqlite.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("unable to open sqlite store: %w", err)
		}
		log.Printf("SQLite store initialized at %s.", cfg.SQLitePath)
		return st, nil
	default:
		dbpool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("unable to create database connection pool: %w", err)
		}
		st := postgres.NewPostgresStore(dbpool)
		if err := st.Ping(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("unable to ping database: %w", err)
		}
		log.Println("Database connection pool established and pinged successfully.")
		if migrate {
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, fmt.Errorf("unable to apply schema: %w", err)
			}
			log.Println("Database schema applied.")
		}
		return st, nil
	}
}

// openIdempotency returns a nil store when REDIS_URL is unset.
func openIdempotency(ctx context.Context, cfg *config.Config) (store.IdempotencyStore, func(), error) {
	if cfg.RedisURL == "" {
		log.Println("REDIS_URL not set; Idempotency-Key support disabled.")
		return nil, func() {}, nil
	}
	rdb, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	st := redis.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("unable to ping redis: %w", err)
	}
	log.Println("Redis idempotency store initialized.")
	return st, func() {
		if err := st.Close(); err != nil {
			log.Printf("WARN: Closing redis client: %v", err)
		}
	}, nil
}

// newGateway uses the provider when it is usable and keeps the deterministic
// fallback behind it; without credentials only the fallback serves.
func newGateway(ctx context.Context, cfg *config.Config) (llm.Gateway, error) {
	fallback := llm.NewFallback(nil)
	providerCfg := llm.ProviderConfig{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.LLMAPIKey,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
	}
	if providerCfg.RequiresAPIKey() && providerCfg.APIKey == "" {
		log.Printf("WARN: LLM_API_KEY not set for provider %s; using the deterministic gateway only.", cfg.LLMProvider)
		return fallback, nil
	}

	chatModel, err := llm.NewChatModel(ctx, providerCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create %s chat model: %w", cfg.LLMProvider, err)
	}
	policy := llm.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.LLMMaxAttempts
	policy.AttemptTimeout = cfg.LLMAttemptTimeout
	log.Printf("LLM gateway initialized (provider=%s, attempts=%d, attempt_timeout=%s).", cfg.LLMProvider, policy.MaxAttempts, policy.AttemptTimeout)
	return llm.NewClient(chatModel,
		llm.WithName(cfg.LLMProvider),
		llm.WithRetryPolicy(policy),
		llm.WithFallback(fallback),
	), nil
}
