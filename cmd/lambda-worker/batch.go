package main

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"

	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/workerproc"
)

// batch runs an SQS event through the processor. Records that should be
// redelivered come back as batch item failures; Lambda deletes the rest.
type batch struct {
	processor workerproc.Processor
}

func (b batch) handle(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	resp := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}
	for _, record := range event.Records {
		metrics.IncAnalysisJobsReceived()
		out := workerproc.Handle(ctx, b.processor, record.Body)
		fields := map[string]any{
			"analysis_id":    out.Message.AnalysisID,
			"sqs_message_id": record.MessageId,
		}
		if out.Message.RequestID != "" {
			fields["request_id"] = out.Message.RequestID
		}

		switch {
		case out.Err == nil:
			telemetry.Info("worker.analysis.completed", fields)
			metrics.IncAnalysisJobsCompleted()
		case out.Disposition == workerproc.Ack:
			fields["error"] = out.Err.Error()
			fields["body_len"] = out.Meta.BodyLen
			telemetry.Error("worker.analysis.unrecoverable", fields)
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		default:
			fields["error"] = out.Err.Error()
			if isVersionSkew(out.Err) {
				telemetry.Warn("worker.analysis.deferred", fields)
			} else {
				telemetry.Error("worker.analysis.failed", fields)
				metrics.IncAnalysisJobsFailed()
			}
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return resp
}

func isVersionSkew(err error) bool {
	var werr *workerproc.Error
	return errors.As(err, &werr) && werr.Stage == workerproc.StageVersion
}

// retryAll reports every record as failed so the whole batch is redelivered.
func retryAll(event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
	for _, record := range event.Records {
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}
