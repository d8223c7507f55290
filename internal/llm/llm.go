package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Request is a single prompted completion.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON-only answer when it supports that mode.
	JSON bool
	// Temperature overrides the provider default when non-nil.
	Temperature *float32
}

// Response is the raw model output. Its shape is not guaranteed.
type Response struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client abstracts LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

var (
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("llm returned empty response")
	// ErrNotConfigured is returned when a provider is missing credentials or a model.
	ErrNotConfigured = errors.New("llm provider not configured")
)

// DefaultTemperature keeps answers close to deterministic.
const DefaultTemperature float32 = 0.1

// TemperatureOf returns the request temperature or DefaultTemperature.
func TemperatureOf(req Request) float32 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return DefaultTemperature
}

type extraSystemKey struct{}

// WithExtraSystemMessage asks providers to prepend an extra system instruction, used for repair retries.
func WithExtraSystemMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, extraSystemKey{}, msg)
}

// ExtraSystemMessageFromContext returns the repair instruction, if any.
func ExtraSystemMessageFromContext(ctx context.Context) (string, bool) {
	msg, ok := ctx.Value(extraSystemKey{}).(string)
	return msg, ok && msg != ""
}

// SystemFor merges the request system prompt with any repair instruction on the context.
func SystemFor(ctx context.Context, req Request) string {
	extra, ok := ExtraSystemMessageFromContext(ctx)
	if !ok {
		return req.System
	}
	if req.System == "" {
		return extra
	}
	return extra + "\n\n" + req.System
}

type promptHashSinkKey struct{}

// WithPromptHashSink records the hash of the next prompt sent into sink.
func WithPromptHashSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the sink installed by WithPromptHashSink.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(promptHashSinkKey{}).(*string)
	return sink, ok && sink != nil
}

// RecordPromptHash stores the sha256 of system+prompt into the context sink, when present.
func RecordPromptHash(ctx context.Context, system, prompt string) {
	sink, ok := PromptHashSinkFromContext(ctx)
	if !ok {
		return
	}
	*sink = HashPrompt(system, prompt)
}

// HashPrompt returns a stable hex digest of a prompt pair.
func HashPrompt(system, prompt string) string {
	sum := sha256.Sum256([]byte("system: " + system + "\n\nuser: " + prompt))
	return hex.EncodeToString(sum[:])
}
