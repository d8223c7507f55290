package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"careerpilot-backend/internal/llm"
)

var endpoint = "https://api.openai.com/v1/chat/completions"

// fixedTemperatureEnv lists extra models, comma separated, that reject a custom temperature.
const fixedTemperatureEnv = "LLM_NO_TEMP0_MODELS"

var errTemperatureUnsupported = errors.New("temperature unsupported")

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	http       *resty.Client
	model      string
	fixedTemps []string
}

// NewClient requires both a key and a model. The fixed-temperature list is read once from the environment.
func NewClient(apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: LLM_MODEL is required for OpenAI", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", llm.ErrNotConfigured)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")
	return &Client{
		http:       rc,
		model:      strings.TrimSpace(model),
		fixedTemps: splitModels(os.Getenv(fixedTemperatureEnv)),
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

// Complete sends one chat completion. A model that rejects the temperature gets a single retry without it.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	system := llm.SystemFor(ctx, req)
	llm.RecordPromptHash(ctx, system, req.Prompt)

	body := completionRequest{Model: c.model}
	if system != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: system})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}
	if c.sendsTemperature() {
		t := llm.TemperatureOf(req)
		body.Temperature = &t
	}

	out, err := c.post(ctx, body)
	if err != nil && body.Temperature != nil && errors.Is(err, errTemperatureUnsupported) {
		body.Temperature = nil
		out, err = c.post(ctx, body)
	}
	return out, err
}

func (c *Client) post(ctx context.Context, body completionRequest) (llm.Response, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return llm.Response{}, fmt.Errorf("openai request timeout: %w", err)
		}
		return llm.Response{}, fmt.Errorf("openai request: %w", err)
	}

	raw := resp.String()
	if !gjson.Valid(raw) {
		if resp.IsError() {
			return llm.Response{}, fmt.Errorf("openai http status %d", resp.StatusCode())
		}
		return llm.Response{}, errors.New("openai response parse: invalid json")
	}

	parsed := gjson.Parse(raw)
	if apiErr := parsed.Get("error"); apiErr.Exists() {
		msg := apiErr.Get("message").String()
		if rejectsTemperature(msg) {
			return llm.Response{}, fmt.Errorf("openai error: %s: %w", msg, errTemperatureUnsupported)
		}
		return llm.Response{}, fmt.Errorf("openai error: http status %d: %s (%s)", resp.StatusCode(), msg, apiErr.Get("type").String())
	}
	if resp.IsError() {
		return llm.Response{}, fmt.Errorf("openai http status %d", resp.StatusCode())
	}

	choice := parsed.Get("choices.0.message.content")
	if !choice.Exists() {
		return llm.Response{}, errors.New("openai response missing choices")
	}
	out := llm.Response{
		Text:             strings.TrimSpace(choice.String()),
		Model:            parsed.Get("model").String(),
		PromptTokens:     int(parsed.Get("usage.prompt_tokens").Int()),
		CompletionTokens: int(parsed.Get("usage.completion_tokens").Int()),
	}
	if out.Model == "" {
		out.Model = body.Model
	}
	return out, nil
}

func rejectsTemperature(msg string) bool {
	msg = strings.ToLower(msg)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	return strings.Contains(msg, "unsupported") || strings.Contains(msg, "does not support")
}

// sendsTemperature is false for the gpt-5 family and for configured fixed-temperature models.
func (c *Client) sendsTemperature() bool {
	model := strings.ToLower(c.model)
	if strings.HasPrefix(model, "gpt-5") {
		return false
	}
	for _, m := range c.fixedTemps {
		if m == model {
			return false
		}
	}
	return true
}

func splitModels(list string) []string {
	var out []string
	for _, m := range strings.Split(list, ",") {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			out = append(out, m)
		}
	}
	return out
}

var _ llm.Client = (*Client)(nil)
