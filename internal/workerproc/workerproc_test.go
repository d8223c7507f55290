package workerproc

import (
	"context"
	"errors"
	"testing"

	"careerpilot-backend/internal/queue"
)

type recordingProcessor struct {
	ids []string
	err error
}

func (p *recordingProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	p.ids = append(p.ids, analysisID)
	return p.err
}

func encode(t *testing.T, msg queue.Message) string {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func TestHandleDispositions(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		procErr   error
		wantStage Stage
		want      Disposition
		processed bool
	}{
		{name: "success", body: encode(t, queue.Message{AnalysisID: "a-1", RequestID: "req-1", Version: 1}), want: Ack, processed: true},
		{name: "empty", body: "  ", wantStage: StageEmpty, want: Ack},
		{name: "bad json", body: "{", wantStage: StageDecode, want: Ack},
		{name: "missing id", body: `{"requestId":"req-1"}`, wantStage: StageMissingID, want: Ack},
		{name: "newer version", body: `{"analysisId":"a-1","version":9}`, wantStage: StageVersion, want: Retry},
		{name: "process error", body: encode(t, queue.Message{AnalysisID: "a-1"}), procErr: errors.New("db down"), wantStage: StageProcess, want: Retry, processed: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &recordingProcessor{err: tc.procErr}
			out := Handle(context.Background(), p, tc.body)

			if out.Disposition != tc.want {
				t.Fatalf("disposition = %v, want %v", out.Disposition, tc.want)
			}
			if (len(p.ids) == 1) != tc.processed {
				t.Fatalf("processed ids %v, want processed=%v", p.ids, tc.processed)
			}
			if tc.wantStage == "" {
				if out.Err != nil {
					t.Fatalf("unexpected error: %v", out.Err)
				}
				return
			}
			var werr *Error
			if !errors.As(out.Err, &werr) || werr.Stage != tc.wantStage {
				t.Fatalf("expected stage %s, got %v", tc.wantStage, out.Err)
			}
		})
	}
}

func TestHandleKeepsIdentifiersOnFailure(t *testing.T) {
	body := encode(t, queue.Message{AnalysisID: "a-2", RequestID: "req-2"})
	cause := errors.New("db down")
	out := Handle(context.Background(), &recordingProcessor{err: cause}, body)

	var werr *Error
	if !errors.As(out.Err, &werr) {
		t.Fatalf("expected *Error, got %T", out.Err)
	}
	if werr.AnalysisID != "a-2" || werr.RequestID != "req-2" || werr.Meta.BodyLen != len(body) {
		t.Fatalf("unexpected error fields %+v", werr)
	}
	if !errors.Is(out.Err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
}

func TestHandleWithoutProcessorRetries(t *testing.T) {
	out := Handle(context.Background(), nil, `{"analysisId":"a-3"}`)
	if out.Err == nil || out.Disposition != Retry {
		t.Fatalf("expected retry without processor, got %+v", out)
	}
}
