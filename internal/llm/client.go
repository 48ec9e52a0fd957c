package llm

import (
	"context"
	"fmt"
	"log"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"reqnexa-backend/internal/interview"
	"reqnexa-backend/internal/models"
)

// Client is the provider-backed Gateway. Provider calls are retried with
// backoff; once retries are exhausted the optional fallback answers instead.
type Client struct {
	model     einoModel.BaseChatModel
	name      string
	retry     RetryPolicy
	fallback  Gateway
	catalogue *interview.Catalogue
}

var _ Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithFallback sets the gateway used when the provider keeps failing.
func WithFallback(g Gateway) Option {
	return func(c *Client) { c.fallback = g }
}

// WithCatalogue overrides the default stage catalogue.
func WithCatalogue(catalogue *interview.Catalogue) Option {
	return func(c *Client) { c.catalogue = catalogue }
}

// WithName labels the provider in logs.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// NewClient wraps an eino chat model.
func NewClient(model einoModel.BaseChatModel, opts ...Option) *Client {
	c := &Client{
		model:     model,
		name:      "llm",
		retry:     DefaultRetryPolicy(),
		catalogue: interview.DefaultCatalogue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// generate runs one prompt through the retry policy and returns the trimmed
// content of the response.
func (c *Client) generate(ctx context.Context, op string, messages []*schema.Message) (string, error) {
	var content string
	err := c.retry.Do(ctx, op, func(ctx context.Context) error {
		resp, err := c.model.Generate(ctx, messages)
		if err != nil {
			return err
		}
		if resp == nil || strings.TrimSpace(resp.Content) == "" {
			return ErrEmptyResponse
		}
		content = strings.TrimSpace(resp.Content)
		return nil
	})
	return content, err
}

func (c *Client) GenerateReply(ctx context.Context, history []models.Message, projectType models.ProjectType, stage interview.StageName) (string, error) {
	current := c.catalogue.Resolve(stage, len(history))
	messages := []*schema.Message{
		schema.SystemMessage(buildSystemPrompt(projectType)),
		schema.UserMessage(buildReplyPrompt(history, current)),
	}

	reply, err := c.generate(ctx, "generate reply", messages)
	if err == nil {
		return reply, nil
	}
	if c.fallback != nil && ctx.Err() == nil {
		log.Printf("WARN [LLMGateway] %s reply failed, using fallback: %v", c.name, err)
		return c.fallback.GenerateReply(ctx, history, projectType, current.Name)
	}
	return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// GenerateFollowUps does not call the provider; the topic table is cheap and
// deterministic.
func (c *Client) GenerateFollowUps(ctx context.Context, requirementText string, projectType models.ProjectType) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FollowUps(requirementText, projectType), nil
}

func (c *Client) Classify(ctx context.Context, text string) (*Classification, error) {
	raw, err := c.generate(ctx, "classify requirement", []*schema.Message{
		schema.UserMessage(buildClassifyPrompt(text)),
	})
	if err != nil {
		if c.fallback != nil && ctx.Err() == nil {
			log.Printf("WARN [LLMGateway] %s classify failed, using fallback: %v", c.name, err)
			return c.fallback.Classify(ctx, text)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	classification, err := parseClassification(raw, text)
	if err != nil {
		log.Printf("WARN [LLMGateway] %s classify output unusable, using heuristic: %v", c.name, err)
		return HeuristicClassify(text), nil
	}
	return classification, nil
}

func (c *Client) ExtractRequirements(ctx context.Context, history []models.Message) ([]models.RequirementDraft, error) {
	if len(history) == 0 {
		return []models.RequirementDraft{}, nil
	}
	raw, err := c.generate(ctx, "extract requirements", []*schema.Message{
		schema.UserMessage(buildExtractPrompt(history)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("ERROR [LLMGateway] %s extraction failed: %v", c.name, err)
		return []models.RequirementDraft{}, nil
	}

	drafts, err := parseDrafts(raw)
	if err != nil {
		log.Printf("WARN [LLMGateway] %s extraction output unusable: %v", c.name, err)
		return []models.RequirementDraft{}, nil
	}
	return drafts, nil
}
