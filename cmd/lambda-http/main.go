package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"careerpilot-backend/internal/bootstrap"
	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/server/respond"
	"careerpilot-backend/internal/shared/telemetry"
)

var buildProxy = sync.OnceValues(func() (*ginadapter.GinLambdaV2, error) {
	cfg := config.Load()
	if strings.TrimSpace(cfg.SQSQueueURL) == "" {
		// A frozen Lambda container cannot finish in-process analyses.
		telemetry.Warn("lambda.http.no_queue", map[string]any{"env": cfg.Env})
	}
	app, err := bootstrap.Build(context.Background(), cfg, bootstrap.RoleServer)
	if err != nil {
		return nil, err
	}
	return ginadapter.NewV2(app.Router), nil
})

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	proxy, err := buildProxy()
	if err != nil {
		telemetry.Error("lambda.http.bootstrap_failed", map[string]any{"error": err.Error()})
		return unavailable(), nil
	}
	return proxy.ProxyWithContext(ctx, req)
}

// unavailable renders the standard error envelope without a router.
func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "service_unavailable",
		Message: "service is starting or misconfigured",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       string(body),
	}
}

func main() {
	lambda.Start(handler)
}
