package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"careerpilot-backend/internal/llm"
)

const (
	DefaultServer = "http://localhost:11434"
	DefaultModel  = "llama3.1:8b"
)

// Client implements llm.Client against a local Ollama server.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient builds a client for server. Blank values fall back to the local defaults.
func NewClient(server, model string, timeout time.Duration) *Client {
	if strings.TrimSpace(server) == "" {
		server = DefaultServer
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(server, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: rc, model: model}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// Complete calls /api/generate with streaming disabled and returns the "response" field.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	system := llm.SystemFor(ctx, req)
	llm.RecordPromptHash(ctx, system, req.Prompt)

	body := generateRequest{
		Model:   c.model,
		Prompt:  req.Prompt,
		System:  system,
		Stream:  false,
		Options: map[string]any{"temperature": llm.TemperatureOf(req)},
	}
	if req.JSON {
		body.Format = "json"
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/api/generate")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Response{}, fmt.Errorf("ollama request timeout: %w", err)
		}
		return llm.Response{}, fmt.Errorf("ollama request: %w", err)
	}

	raw := resp.String()
	if resp.IsError() {
		msg := gjson.Get(raw, "error").String()
		if msg == "" {
			msg = strings.TrimSpace(raw)
		}
		return llm.Response{}, fmt.Errorf("ollama http status %d: %s", resp.StatusCode(), msg)
	}
	if !gjson.Valid(raw) {
		return llm.Response{}, fmt.Errorf("ollama response parse: invalid json")
	}

	parsed := gjson.Parse(raw)
	if errMsg := parsed.Get("error"); errMsg.Exists() {
		return llm.Response{}, fmt.Errorf("ollama error: %s", errMsg.String())
	}
	out := llm.Response{
		Text:             parsed.Get("response").String(),
		Model:            parsed.Get("model").String(),
		PromptTokens:     int(parsed.Get("prompt_eval_count").Int()),
		CompletionTokens: int(parsed.Get("eval_count").Int()),
	}
	if out.Model == "" {
		out.Model = c.model
	}
	return out, nil
}

var _ llm.Client = (*Client)(nil)
