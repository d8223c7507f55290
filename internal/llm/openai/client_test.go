package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpilot-backend/internal/llm"
)

type capture struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
}

func (c *capture) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func (c *capture) body(i int) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bodies[i]
}

// serve points the client at a local server. reply gets the 1-based call number.
func serve(t *testing.T, status int, reply func(call int) string) *capture {
	t.Helper()
	got := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		got.mu.Lock()
		got.bodies = append(got.bodies, payload)
		got.auth = append(got.auth, r.Header.Get("Authorization"))
		call := len(got.bodies)
		got.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply(call)))
	}))
	prev := endpoint
	endpoint = srv.URL
	t.Cleanup(func() {
		endpoint = prev
		srv.Close()
	})
	return got
}

func newTestClient(t *testing.T, model string) *Client {
	t.Helper()
	c, err := NewClient("sk-test", model, time.Second)
	require.NoError(t, err)
	return c
}

func TestCompleteParsesChoiceAndUsage(t *testing.T) {
	got := serve(t, http.StatusOK, func(int) string {
		return `{"model":"gpt-4o-mini-2024","choices":[{"message":{"content":"  {\"ok\":true}  "}}],"usage":{"prompt_tokens":12,"completion_tokens":4}}`
	})

	resp, err := newTestClient(t, "gpt-4o-mini").Complete(context.Background(), llm.Request{System: "analyst", Prompt: "p", JSON: true})
	require.NoError(t, err)

	assert.Equal(t, llm.Response{Text: `{"ok":true}`, Model: "gpt-4o-mini-2024", PromptTokens: 12, CompletionTokens: 4}, resp)
	assert.Equal(t, "Bearer sk-test", got.auth[0])
	body := got.body(0)
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
	assert.Contains(t, body, "temperature")
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestCompleteFallsBackToConfiguredModel(t *testing.T) {
	serve(t, http.StatusOK, func(int) string { return `{"choices":[{"message":{"content":"x"}}]}` })

	resp, err := newTestClient(t, "gpt-4o").Complete(context.Background(), llm.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", resp.Model)
}

func TestCompleteOmitsTemperatureForFixedModels(t *testing.T) {
	t.Setenv(fixedTemperatureEnv, "gpt-4.1-nano")
	got := serve(t, http.StatusOK, func(int) string { return `{"choices":[{"message":{"content":"{}"}}]}` })

	_, err := newTestClient(t, "gpt-4.1-nano").Complete(context.Background(), llm.Request{Prompt: "p"})
	require.NoError(t, err)
	assert.NotContains(t, got.body(0), "temperature")
	assert.NotContains(t, got.body(0), "response_format")
}

func TestCompleteRetriesOnceWithoutTemperature(t *testing.T) {
	rejection := `{"error":{"message":"Unsupported value: 'temperature' does not support 0.1 with this model.","type":"invalid_request_error"}}`

	t.Run("second attempt error surfaces", func(t *testing.T) {
		got := serve(t, http.StatusBadRequest, func(call int) string {
			if call == 1 {
				return rejection
			}
			return `{"error":{"message":"rate limited","type":"requests"}}`
		})
		_, err := newTestClient(t, "o1").Complete(context.Background(), llm.Request{Prompt: "p"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
		require.Equal(t, 2, got.count())
		assert.Contains(t, got.body(0), "temperature")
		assert.NotContains(t, got.body(1), "temperature")
	})

	t.Run("no third attempt", func(t *testing.T) {
		got := serve(t, http.StatusBadRequest, func(int) string { return rejection })
		_, err := newTestClient(t, "o1").Complete(context.Background(), llm.Request{Prompt: "p"})
		require.ErrorIs(t, err, errTemperatureUnsupported)
		assert.Equal(t, 2, got.count())
	})
}

func TestCompletePrependsExtraSystemMessage(t *testing.T) {
	got := serve(t, http.StatusOK, func(int) string { return `{"choices":[{"message":{"content":"ok"}}]}` })

	ctx := llm.WithExtraSystemMessage(context.Background(), "return JSON only")
	_, err := newTestClient(t, "gpt-4o-mini").Complete(ctx, llm.Request{System: "analyst", Prompt: "p"})
	require.NoError(t, err)

	first := got.body(0)["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "return JSON only\n\nanalyst", first["content"])
}

func TestCompleteErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"html gateway page", http.StatusBadGateway, "<html>bad gateway</html>", "http status 502"},
		{"json without error field", http.StatusServiceUnavailable, `{"detail":"down"}`, "http status 503"},
		{"invalid json on success", http.StatusOK, "not json", "invalid json"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "missing choices"},
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"auth"}}`, "bad key (auth)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			serve(t, tc.status, func(int) string { return tc.body })
			_, err := newTestClient(t, "gpt-4o-mini").Complete(context.Background(), llm.Request{Prompt: "p"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	_, err := NewClient("", "gpt-4o-mini", 0)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
	_, err = NewClient("sk", " ", 0)
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}

func TestSendsTemperature(t *testing.T) {
	t.Setenv(fixedTemperatureEnv, " O3-mini , ,")
	cases := map[string]bool{
		"gpt-5":      false,
		"GPT-5-mini": false,
		"o3-mini":    false,
		"gpt-4o":     true,
	}
	for model, want := range cases {
		c := newTestClient(t, model)
		assert.Equal(t, want, c.sendsTemperature(), model)
	}
}
