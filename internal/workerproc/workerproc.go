package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"careerpilot-backend/internal/queue"
	"careerpilot-backend/internal/shared/telemetry"
)

// Processor runs one queued analysis to completion.
type Processor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// Stage names where handling a message stopped.
type Stage string

const (
	StageEmpty     Stage = "empty_body"
	StageDecode    Stage = "decode"
	StageVersion   Stage = "version"
	StageMissingID Stage = "missing_id"
	StageProcess   Stage = "process"
)

// Disposition tells the consumer what to do with the queue message.
type Disposition int

const (
	// Ack deletes the message: it was handled or can never be handled.
	Ack Disposition = iota
	// Retry leaves the message to reappear after the visibility timeout.
	Retry
)

// MessageMeta identifies a payload in logs without printing it.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// Error reports why a message was not processed.
type Error struct {
	Stage      Stage
	AnalysisID string
	RequestID  string
	Meta       MessageMeta
	Err        error
}

func (e *Error) Error() string {
	msg := "worker " + string(e.Stage)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Outcome is the result of handling one message body.
type Outcome struct {
	Message     queue.Message
	Meta        MessageMeta
	Err         error
	Disposition Disposition
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, &Error{Stage: StageEmpty, Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if errors.Is(err, queue.ErrUnsupportedVersion) {
		return queue.Message{}, meta, &Error{Stage: StageVersion, Meta: meta, Err: err}
	}
	if err != nil {
		return queue.Message{}, meta, &Error{Stage: StageDecode, Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.AnalysisID) == "" {
		return msg, meta, &Error{Stage: StageMissingID, RequestID: msg.RequestID, Meta: meta}
	}
	return msg, meta, nil
}

// Handle parses the body and runs the analysis it names.
//
// Malformed payloads are acked because redelivery cannot fix them. Payloads
// from a newer producer are retried so an upgraded worker can take them.
// Processing errors are retried: the analysis service records job failures
// itself and only returns errors it could not persist.
func Handle(ctx context.Context, processor Processor, body string) Outcome {
	msg, meta, err := ParseMessage(body)
	out := Outcome{Message: msg, Meta: meta, Err: err}
	if err != nil {
		var werr *Error
		if errors.As(err, &werr) && werr.Stage == StageVersion {
			out.Disposition = Retry
		}
		return out
	}
	if processor == nil {
		out.Err = &Error{Stage: StageProcess, AnalysisID: msg.AnalysisID, RequestID: msg.RequestID, Meta: meta, Err: errors.New("analysis processor not configured")}
		out.Disposition = Retry
		return out
	}

	ctx = telemetry.WithRequestID(ctx, msg.RequestID)
	if err := processor.ProcessAnalysis(ctx, msg.AnalysisID); err != nil {
		out.Err = &Error{Stage: StageProcess, AnalysisID: msg.AnalysisID, RequestID: msg.RequestID, Meta: meta, Err: err}
		out.Disposition = Retry
	}
	return out
}
