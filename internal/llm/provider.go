package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einoModel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGoogle:    "gemini-1.5-flash",
	ProviderOllama:    "llama3.1",
}

const defaultOllamaURL = "http://localhost:11434"

// ProviderConfig selects and configures a chat model provider.
type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// RequiresAPIKey reports whether the provider cannot run without a key.
func (c ProviderConfig) RequiresAPIKey() bool {
	return strings.ToLower(c.Provider) != ProviderOllama
}

// NewChatModel creates an eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg ProviderConfig) (einoModel.ToolCallingChatModel, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModels[provider]
	}

	switch provider {
	case ProviderOpenAI:
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai model: %w", err)
		}
		return chatModel, nil

	case ProviderAnthropic:
		claudeCfg := &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			MaxTokens: 1024,
		}
		if cfg.BaseURL != "" {
			baseURL := cfg.BaseURL
			claudeCfg.BaseURL = &baseURL
		}
		chatModel, err := claude.NewChatModel(ctx, claudeCfg)
		if err != nil {
			return nil, fmt.Errorf("init anthropic model: %w", err)
		}
		return chatModel, nil

	case ProviderGoogle:
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: genaiClient,
			Model:  modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini model: %w", err)
		}
		return chatModel, nil

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init ollama model: %w", err)
		}
		return chatModel, nil

	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, cfg.Provider)
	}
}
