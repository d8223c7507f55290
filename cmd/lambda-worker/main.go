package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"careerpilot-backend/internal/bootstrap"
	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/telemetry"
)

// buildApp runs once per container; a failed build fails every later batch too.
var buildApp = sync.OnceValues(func() (*bootstrap.App, error) {
	return bootstrap.Build(context.Background(), config.Load(), bootstrap.RoleWorker)
})

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	app, err := buildApp()
	if err != nil {
		telemetry.Error("lambda.worker.bootstrap_failed", map[string]any{"error": err.Error()})
		return retryAll(event), err
	}
	return batch{processor: app.AnalysesService}.handle(ctx, event), nil
}

func main() {
	lambda.Start(handler)
}
