package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const defaultSQSRegion = "us-east-1"

// Attribute names copied onto every SQS message so consumers can route and log without decoding the body.
const (
	AttrKind      = "kind"
	AttrRequestID = "request_id"
	AttrItemID    = "item_id"
)

type sendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes PDF text jobs to an SQS queue.
type SQSClient struct {
	client   sendMessageAPI
	queueURL string
}

// NewSQSClient loads AWS config for region (default us-east-1) and targets queueURL.
func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("PDFSEARCH_SQS_QUEUE_URL is required")
	}
	region = strings.TrimSpace(region)
	if region == "" {
		region = defaultSQSRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSClient{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Send encodes msg as the body and mirrors kind, request and item IDs into message attributes.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: messageAttributes(msg),
	})
	if err != nil {
		return fmt.Errorf("sqs send message kind=%s: %w", msg.Kind, err)
	}
	return nil
}

func messageAttributes(msg Message) map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{
		AttrKind: stringAttr(msg.Kind),
	}
	if msg.RequestID != "" {
		attrs[AttrRequestID] = stringAttr(msg.RequestID)
	}
	if msg.ItemID > 0 {
		attrs[AttrItemID] = types.MessageAttributeValue{
			DataType:    aws.String("Number"),
			StringValue: aws.String(strconv.FormatInt(msg.ItemID, 10)),
		}
	}
	return attrs
}

func stringAttr(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
}

var _ Client = (*SQSClient)(nil)
