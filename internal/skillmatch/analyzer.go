package skillmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
)

// Analyzer runs the prompt → normalize → extract → reconcile → validate pipeline.
type Analyzer struct {
	LLM     llm.Client
	Catalog *Catalog
	// Strict forces the deterministic score regardless of model output.
	Strict bool
}

// NewAnalyzer constructs an Analyzer. A nil catalog uses the embedded default.
func NewAnalyzer(client llm.Client, catalog *Catalog, strict bool) *Analyzer {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Analyzer{LLM: client, Catalog: catalog, Strict: strict}
}

// Analyze compares a resume with a job description.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (Result, Trace, error) {
	metrics.IncSkillMatchRequests()
	if strings.TrimSpace(in.JobDescription) == "" || strings.TrimSpace(in.Resume) == "" {
		return Result{}, Trace{}, ErrInvalidInput
	}
	if a.LLM == nil {
		return Result{}, Trace{}, fmt.Errorf("%w: no completer", llm.ErrNotConfigured)
	}

	var promptHash string
	ctx = llm.WithPromptHashSink(ctx, &promptHash)

	start := time.Now()
	resp, err := a.LLM.Complete(ctx, llm.Request{
		System: SystemPrompt(),
		Prompt: BuildPrompt(in),
	})
	if err != nil {
		return Result{}, Trace{PromptHash: promptHash}, fmt.Errorf("llm completion: %w", err)
	}

	result, trace, err := a.Process(resp.Text, in)
	trace.PromptHash = promptHash
	telemetry.Info("skillmatch.analyzed", map[string]any{
		"model":        resp.Model,
		"source":       string(trace.Source),
		"server_score": trace.ServerScore,
		"strict":       trace.Strict,
		"match_score":  result.MatchScore,
		"duration_ms":  time.Since(start).Milliseconds(),
		"prompt_hash":  promptHash,
	})
	return result, trace, err
}

// Process turns raw model text into a validated Result. It never calls the model.
func (a *Analyzer) Process(text string, in Input) (Result, Trace, error) {
	trace := Trace{Raw: text, Strict: a.Strict}

	parsed, normalized, rawJSON, scanText := decodeModelText(text)
	trace.Normalized = normalized

	candidate, source := Assemble(parsed, normalized, rawJSON, scanText)
	trace.Source = source
	if source == SourceTextScan {
		metrics.IncSkillMatchTextScan()
	}

	result, serverScored := Reconcile(candidate, in, a.Strict, a.catalog())
	trace.ServerScore = serverScored
	if serverScored {
		metrics.IncSkillMatchServerScore()
	}
	if a.Strict {
		metrics.IncSkillMatchStrict()
	}

	if err := Validate(result); err != nil {
		metrics.IncSkillMatchSchemaFailed()
		telemetry.Error("skillmatch.validation.failed", map[string]any{
			"err":    err,
			"source": string(source),
		})
		return Result{}, trace, &ValidationError{Err: err, Raw: text, Normalized: normalized, Final: result}
	}
	return result, trace, nil
}

func (a *Analyzer) catalog() *Catalog {
	if a.Catalog == nil {
		return DefaultCatalog()
	}
	return a.Catalog
}

// decodeModelText parses text when the whole answer is JSON. A JSON object
// yields parsed/normalized data; a JSON string is unquoted and scanned as text.
func decodeModelText(text string) (parsed map[string]any, normalized any, rawJSON string, scan string) {
	scan = text
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return nil, nil, "", scan
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, nil, "", scan
	}
	if s, ok := v.(string); ok {
		return nil, nil, "", s
	}
	normalized = Normalize(v)
	if _, ok := v.(map[string]any); ok {
		rawJSON = trimmed
	}
	parsed, _ = normalized.(map[string]any)
	return parsed, normalized, rawJSON, scan
}
