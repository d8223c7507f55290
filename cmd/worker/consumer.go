package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/metrics"
	"careerpilot-backend/internal/shared/telemetry"
	"careerpilot-backend/internal/workerproc"
)

const (
	receiveBatch      = 10
	longPollSeconds   = 20
	receiveCountAttr  = "ApproximateReceiveCount"
	errMissingReceipt = "missing receipt handle"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// consumer long-polls the analysis queue and runs each job through the
// processor with bounded concurrency.
type consumer struct {
	api        sqsAPI
	queueURL   string
	processor  workerproc.Processor
	workers    int
	visibility int32
	drain      time.Duration
}

func newConsumer(api sqsAPI, processor workerproc.Processor, cfg config.Config) *consumer {
	return &consumer{
		api:        api,
		queueURL:   strings.TrimSpace(cfg.SQSQueueURL),
		processor:  processor,
		workers:    max(1, cfg.WorkerConcurrency),
		visibility: int32(cfg.SQSVisibility / time.Second),
		drain:      cfg.ShutdownTimeout,
	}
}

// run polls until ctx is cancelled. Jobs already started keep running and
// are given c.drain to finish; unstarted messages return to the queue once
// their visibility timeout lapses.
func (c *consumer) run(ctx context.Context) {
	telemetry.Info("worker.started", map[string]any{
		"queue":              c.queueURL,
		"concurrency":        c.workers,
		"visibility_seconds": c.visibility,
	})

	var jobs errgroup.Group
	jobs.SetLimit(c.workers)
	for ctx.Err() == nil {
		batch, err := c.receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				break
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, msg := range batch {
			if ctx.Err() != nil {
				break
			}
			metrics.IncAnalysisJobsReceived()
			jobs.Go(func() error {
				c.handle(context.WithoutCancel(ctx), msg)
				return nil
			})
		}
	}
	c.waitForJobs(&jobs)
}

func (c *consumer) receive(ctx context.Context) ([]sqstypes.Message, error) {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(c.queueURL),
		MaxNumberOfMessages:         receiveBatch,
		WaitTimeSeconds:             longPollSeconds,
		VisibilityTimeout:           c.visibility,
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{receiveCountAttr},
	})
	if err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *consumer) waitForJobs(jobs *errgroup.Group) {
	telemetry.Info("worker.shutdown", map[string]any{"timeout": c.drain.String()})
	done := make(chan struct{})
	go func() {
		_ = jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.drain):
		telemetry.Warn("worker.shutdown.timeout", map[string]any{"timeout": c.drain.String()})
	}
}

// handle processes one message and deletes it when the outcome says the
// message is finished with, successfully or not.
func (c *consumer) handle(ctx context.Context, msg sqstypes.Message) {
	out := workerproc.Handle(ctx, c.processor, aws.ToString(msg.Body))
	fields := logFields(msg, out)

	if out.Err == nil {
		if c.remove(ctx, msg, fields) {
			telemetry.Info("worker.analysis.completed", fields)
			metrics.IncAnalysisJobsCompleted()
		}
		return
	}

	fields["error"] = out.Err.Error()
	fields["body_len"] = out.Meta.BodyLen
	if out.Meta.BodySHA != "" {
		fields["body_sha256"] = out.Meta.BodySHA
	}
	stage := stageOf(out.Err, fields)
	fields["stage"] = string(stage)

	switch {
	case out.Disposition == workerproc.Ack:
		telemetry.Error("worker.analysis.unrecoverable", fields)
		if c.remove(ctx, msg, fields) {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
	case stage == workerproc.StageVersion:
		telemetry.Warn("worker.analysis.deferred", fields)
	default:
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
	}
}

func (c *consumer) remove(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	var err error
	if receipt == "" {
		err = errors.New(errMissingReceipt)
	} else {
		_, err = c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(c.queueURL),
			ReceiptHandle: aws.String(receipt),
		})
	}
	if err != nil {
		failed := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			failed[k] = v
		}
		failed["delete_error"] = err.Error()
		telemetry.Error("worker.analysis.delete_failed", failed)
		return false
	}
	return true
}

// stageOf reports where handling failed, filling in the request id the
// parser recovered when the decoded message had none.
func stageOf(err error, fields map[string]any) workerproc.Stage {
	var werr *workerproc.Error
	if !errors.As(err, &werr) {
		return workerproc.StageProcess
	}
	if _, ok := fields["request_id"]; !ok && werr.RequestID != "" {
		fields["request_id"] = werr.RequestID
	}
	return werr.Stage
}

func logFields(msg sqstypes.Message, out workerproc.Outcome) map[string]any {
	fields := map[string]any{
		"analysis_id":    out.Message.AnalysisID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if id := strings.TrimSpace(out.Message.RequestID); id != "" {
		fields["request_id"] = id
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes[receiveCountAttr])
	if err != nil {
		return 0
	}
	return n
}
