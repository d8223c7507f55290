package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	fallbackRegion = "us-east-1"
	fifoSuffix     = ".fifo"
)

// ErrNoQueueURL is returned when the SQS client has nowhere to publish.
var ErrNoQueueURL = errors.New("RA_SQS_QUEUE_URL is required")

// SendAPI is the slice of the SQS API the publisher needs.
type SendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes analysis jobs to an SQS queue. FIFO queues are
// grouped and deduplicated per analysis.
type SQSClient struct {
	api      SendAPI
	queueURL string
	fifo     bool
}

func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, ErrNoQueueURL
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = fallbackRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSClientWithAPI(sqs.NewFromConfig(awsCfg), queueURL), nil
}

// NewSQSClientWithAPI wraps an existing API such as a test double.
func NewSQSClientWithAPI(api SendAPI, queueURL string) *SQSClient {
	queueURL = strings.TrimSpace(queueURL)
	return &SQSClient{api: api, queueURL: queueURL, fifo: strings.HasSuffix(queueURL, fifoSuffix)}
}

func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	body, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}
	if _, err := s.api.SendMessage(ctx, s.input(msg, string(body))); err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

func (s *SQSClient) input(msg Message, body string) *sqs.SendMessageInput {
	in := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(body),
		MessageAttributes: attributesOf(msg),
	}
	if s.fifo {
		in.MessageGroupId = aws.String(msg.AnalysisID)
		in.MessageDeduplicationId = aws.String(msg.AnalysisID)
	}
	return in
}

func attributesOf(msg Message) map[string]sqstypes.MessageAttributeValue {
	version := msg.Version
	if version == 0 {
		version = MessageVersion
	}
	attrs := map[string]sqstypes.MessageAttributeValue{
		"version": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(version))},
	}
	if msg.RequestID != "" {
		attrs["request_id"] = sqstypes.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(msg.RequestID)}
	}
	return attrs
}

var _ Client = (*SQSClient)(nil)
