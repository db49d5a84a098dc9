package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/itinerary-agent/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New returns a client for a local Ollama server. A nil executor gets the
// default LLM retry policy.
func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), slog.Default())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// GeneratePlan asks for output constrained to the given JSON schema. Ollama
// accepts a schema object in "format"; anything unparseable degrades to
// plain JSON mode.
func (c *Client) GeneratePlan(ctx context.Context, prompt string, schema []byte) (string, error) {
	var format any = "json"
	if len(schema) > 0 && json.Valid(schema) {
		format = json.RawMessage(schema)
	}
	return c.generate(ctx, "generate_plan", map[string]any{
		"model":  c.model,
		"prompt": withJSONInstruction(prompt),
		"stream": false,
		"format": format,
		"options": map[string]any{
			"temperature": 0.2,
		},
	})
}

// CompleteJSON returns a free-form JSON object for enrichment prompts.
func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	raw, err := c.generate(ctx, "complete_json", map[string]any{
		"model":  c.model,
		"prompt": withJSONInstruction(prompt),
		"stream": false,
		"format": "json",
	})
	if err != nil {
		return "", err
	}
	return extractJSONObject(raw), nil
}

func (c *Client) generate(ctx context.Context, operation string, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	err := c.executor.Execute(ctx, "ollama."+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, operation)
	}, resilience.ClassifyHTTP)
	if err != nil {
		return "", resilience.WrapTemporary("ollama "+operation, err)
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
