// Package llm wraps the chat completion call used by the agent nodes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the OpenAI-compatible DeepSeek endpoint.
	DefaultBaseURL = "https://api.deepseek.com"
	// DefaultModel answers questions.
	DefaultModel = "deepseek-chat"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the SDK-level retry count.
	DefaultMaxRetries = 3
)

// ErrNoChoices is returned when the completion has no choices.
var ErrNoChoices = errors.New("llm: no choices in response")

// Caller sends a single prompt to a model and returns the raw completion text.
type Caller interface {
	Call(ctx context.Context, prompt, model string) (string, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, prompt, model string) (string, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, prompt, model string) (string, error) {
	return f(ctx, prompt, model)
}

// Config configures the client. Timeout and MaxRetries are fixed per client
// and not visible to callers of Call.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns the settings the agent ships with.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	api    openai.Client
	logger *zap.Logger
}

// NewClient creates a client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.Logger, opts ...option.RequestOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	return &Client{
		api:    openai.NewClient(append(base, opts...)...),
		logger: logger.Named("llm"),
	}
}

// Call sends prompt as a single user message to model.
func (c *Client) Call(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	start := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: call %s: %w", model, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("llm: call %s: %w", model, ErrNoChoices)
	}

	content := completion.Choices[0].Message.Content
	c.logger.Debug("completion received",
		zap.String("model", model),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("completion_chars", len(content)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return strings.TrimSpace(content), nil
}
