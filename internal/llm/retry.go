package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// Retrying retries a Client once on transient failures and records call metrics.
type Retrying struct {
	Base     Client
	Provider string
	Delay    time.Duration
}

// NewRetrying wraps base. A nil base yields nil.
func NewRetrying(base Client, provider string) Client {
	if base == nil {
		return nil
	}
	return &Retrying{Base: base, Provider: provider, Delay: retryBaseDelay}
}

// Complete runs the request, retrying once after a short delay when the error looks transient.
func (r *Retrying) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := r.call(ctx, req)
	if err == nil || !ShouldRetry(err) {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"provider": r.Provider,
		"attempt":  1,
		"err":      err,
	})
	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	return r.call(ctx, req)
}

func (r *Retrying) call(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := r.Base.Complete(ctx, req)
	metrics.ObserveLLMCallDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncLLMCallsFailed()
		return Response{}, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		metrics.IncLLMCallsFailed()
		return Response{}, ErrEmptyResponse
	}
	telemetry.Debug("llm.response", map[string]any{
		"provider":          r.Provider,
		"model":             resp.Model,
		"prompt_tokens":     resp.PromptTokens,
		"completion_tokens": resp.CompletionTokens,
		"duration_ms":       time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// ShouldRetry reports whether err is a timeout, 5xx, or dropped connection.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
