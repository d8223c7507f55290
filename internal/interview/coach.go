package interview

import (
	"context"
	"fmt"
	"strings"

	"careerpilot-backend/internal/llm"
	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
)

// Coach asks the model for questions and answer evaluations.
type Coach struct {
	LLM llm.Client
}

func NewCoach(client llm.Client) *Coach {
	return &Coach{LLM: client}
}

// GenerateQuestions returns exactly QuestionCount questions for the job
// description. A short list gets one repair retry; extras are dropped.
func (c *Coach) GenerateQuestions(ctx context.Context, jobDescription string) ([]string, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return nil, fmt.Errorf("%w: jobDescription is required", ErrInvalidInput)
	}
	req := llm.Request{
		System: questionsSystem,
		Prompt: buildQuestionsPrompt(jobDescription),
		JSON:   true,
	}

	questions, err := completeWith(ctx, c.LLM, req, "", ParseQuestions)
	if err != nil {
		return nil, err
	}
	if len(questions) < QuestionCount {
		telemetry.Warn("interview.questions.repair", map[string]any{"got": len(questions)})
		questions, err = completeWith(ctx, c.LLM, req, questionsRepair, ParseQuestions)
		if err != nil {
			return nil, err
		}
	}
	if len(questions) < QuestionCount {
		return nil, fmt.Errorf("%w: got %d questions, want %d", ErrSchemaMismatch, len(questions), QuestionCount)
	}
	metrics.IncInterviewQuestionsGenerated()
	return questions[:QuestionCount], nil
}

type evaluationResult struct {
	eval Evaluation
	ok   bool
}

func parseEvaluationResult(text string) evaluationResult {
	eval, ok := ParseEvaluation(text)
	return evaluationResult{eval: eval, ok: ok}
}

// EvaluateAnswer scores one answer on a 1-10 scale with feedback.
func (c *Coach) EvaluateAnswer(ctx context.Context, jobDescription, question, answer string) (Evaluation, error) {
	if strings.TrimSpace(answer) == "" {
		return Evaluation{}, fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}
	req := llm.Request{
		System: evaluationSystem,
		Prompt: buildEvaluationPrompt(jobDescription, question, answer),
		JSON:   true,
	}

	res, err := completeWith(ctx, c.LLM, req, "", parseEvaluationResult)
	if err != nil {
		return Evaluation{}, err
	}
	if !res.ok {
		telemetry.Warn("interview.evaluation.repair", map[string]any{"score": res.eval.Score})
		res, err = completeWith(ctx, c.LLM, req, evaluationRepair, parseEvaluationResult)
		if err != nil {
			return Evaluation{}, err
		}
	}
	if !res.ok {
		return Evaluation{}, fmt.Errorf("%w: evaluation needs a score and feedback", ErrSchemaMismatch)
	}
	metrics.IncInterviewAnswersScored()
	return res.eval, nil
}

// completeWith runs one completion and parses its text. A non-empty repair
// message is sent as an extra system instruction.
func completeWith[T any](ctx context.Context, client llm.Client, req llm.Request, repair string, parse func(string) T) (T, error) {
	var zero T
	if client == nil {
		return zero, fmt.Errorf("%w: no completer", llm.ErrNotConfigured)
	}
	if repair != "" {
		ctx = llm.WithExtraSystemMessage(ctx, repair)
	}
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return zero, fmt.Errorf("llm completion: %w", err)
	}
	return parse(resp.Text), nil
}
