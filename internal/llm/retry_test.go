package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: fmt.Errorf("wrap: %w", context.DeadlineExceeded), want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "5xx", err: errors.New("ollama http status 503: busy"), want: true},
		{name: "4xx", err: errors.New("ollama http status 404: model not found"), want: false},
		{name: "reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "client timeout", err: errors.New("Client.Timeout exceeded"), want: true},
		{name: "bad request", err: errors.New("invalid_request_error"), want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.err); got != tt.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryingRetriesOnceOnTransientError(t *testing.T) {
	calls := 0
	base := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		calls++
		if calls == 1 {
			return Response{}, errors.New("http status 502")
		}
		return Response{Text: "ok"}, nil
	})
	r := &Retrying{Base: base, Delay: time.Millisecond}

	resp, err := r.Complete(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" || calls != 2 {
		t.Fatalf("resp=%q calls=%d", resp.Text, calls)
	}
}

func TestRetryingDoesNotRetryPermanentError(t *testing.T) {
	calls := 0
	base := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		calls++
		return Response{}, errors.New("invalid api key")
	})
	r := &Retrying{Base: base, Delay: time.Millisecond}

	if _, err := r.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestRetryingRejectsBlankText(t *testing.T) {
	base := ClientFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{Text: "  \n"}, nil
	})
	r := &Retrying{Base: base, Delay: time.Millisecond}
	if _, err := r.Complete(context.Background(), Request{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestSystemForPrependsRepairMessage(t *testing.T) {
	ctx := WithExtraSystemMessage(context.Background(), "fix it")
	if got := SystemFor(ctx, Request{System: "base"}); got != "fix it\n\nbase" {
		t.Fatalf("SystemFor = %q", got)
	}
	if got := SystemFor(context.Background(), Request{System: "base"}); got != "base" {
		t.Fatalf("SystemFor without repair = %q", got)
	}
}

func TestRecordPromptHash(t *testing.T) {
	var sink string
	ctx := WithPromptHashSink(context.Background(), &sink)
	RecordPromptHash(ctx, "sys", "user")
	if sink == "" || sink != HashPrompt("sys", "user") {
		t.Fatalf("sink = %q", sink)
	}
	if HashPrompt("sys", "user") == HashPrompt("sys", "other") {
		t.Fatal("expected hash to change with prompt")
	}
	RecordPromptHash(context.Background(), "sys", "user")
}
