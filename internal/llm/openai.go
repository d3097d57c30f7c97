package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/prompt"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// Completer sends an ordered message list to a language model and returns the
// text of the first choice.
type Completer interface {
	Complete(ctx context.Context, messages []prompt.Message, temperature float64) (string, error)
}

// ClientConfig configures an OpenAI-compatible chat completions endpoint.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// SiteURL and SiteTitle are sent as OpenRouter attribution headers.
	SiteURL   string
	SiteTitle string
}

// Client calls a chat completions endpoint through the OpenAI SDK.
type Client struct {
	client  openai.Client
	model   string
	limiter *Limiter
	log     logger.Logger
}

// NewClient creates a completion client. SDK retries are disabled: a failed
// call surfaces immediately as a *models.ModelCallError.
func NewClient(cfg ClientConfig, limiter *Limiter, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM API key not set")
	}
	if cfg.Model == "" {
		return nil, errors.New("LLM model not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteTitle != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteTitle))
	}

	return &Client{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		limiter: limiter,
		log:     log,
	}, nil
}

// Complete implements Completer. The returned text may be empty when the model
// produced no content; an empty choice list is an error.
func (c *Client) Complete(ctx context.Context, messages []prompt.Message, temperature float64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toCompletionMessages(messages),
		Temperature: openai.Float(temperature),
	}

	estimated := EstimateTokens(messages)
	c.log.Debug("Calling model %s with %d messages (~%d tokens, temperature %.1f)", c.model, len(messages), estimated, temperature)

	start := time.Now()
	completion, err := ThrottledCall(ctx, c.limiter, estimated, c.log, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		c.log.Error("Model call to %s failed after %v: %v", c.model, time.Since(start), err)
		return "", &models.ModelCallError{Err: err}
	}

	if len(completion.Choices) == 0 {
		c.log.Error("Model %s returned no choices", c.model)
		return "", &models.ModelCallError{Err: fmt.Errorf("model %s returned no choices", c.model)}
	}

	c.log.Info("Model %s responded in %v (%d completion tokens)", c.model, time.Since(start), completion.Usage.CompletionTokens)
	return completion.Choices[0].Message.Content, nil
}

func toCompletionMessages(messages []prompt.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
