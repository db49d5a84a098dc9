package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kirillkom/itinerary-agent/internal/infrastructure/resilience"
)

const systemPrompt = "You are the planning component of a trip itinerary agent. Reply with one JSON object and nothing else."

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	api      openai.Client
	model    string
	executor *resilience.Executor
}

type Options struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), slog.Default())
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}

	return &Client{
		api:      openai.NewClient(requestOpts...),
		model:    opts.Model,
		executor: executor,
	}
}

// GeneratePlan embeds the schema in the prompt and requests JSON object mode.
func (c *Client) GeneratePlan(ctx context.Context, prompt string, schema []byte) (string, error) {
	if len(schema) > 0 {
		prompt = prompt + "\n\nThe JSON object must satisfy this JSON schema:\n" + string(schema)
	}
	return c.complete(ctx, "generate_plan", prompt)
}

func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, "complete_json", prompt)
}

func (c *Client) complete(ctx context.Context, operation, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	}

	content, err := resilience.Call(ctx, c.executor, "openai."+operation, func(ctx context.Context) (string, error) {
		completion, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", asStatusError(operation, err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("openai %s: empty choices", operation)
		}
		return completion.Choices[0].Message.Content, nil
	}, resilience.ClassifyHTTP)
	if err != nil {
		return "", resilience.WrapTemporary("openai "+operation, err)
	}
	return strings.TrimSpace(content), nil
}

func asStatusError(operation string, err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	return &resilience.StatusError{
		Service:    "openai",
		Operation:  operation,
		StatusCode: apiErr.StatusCode,
		Status:     fmt.Sprintf("%d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
		Body:       apiErr.Message,
	}
}
