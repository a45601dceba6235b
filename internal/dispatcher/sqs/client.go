package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/feature-flag-events/internal/config"
	"github.com/BarkinBalci/feature-flag-events/internal/event"
)

// MessageSender is the part of the SQS API the dispatcher uses
type MessageSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Dispatcher publishes event batches to an SQS queue, one message per batch
type Dispatcher struct {
	sender   MessageSender
	queueURL string
	log      *zap.Logger
}

// NewClient creates a dispatcher backed by a real SQS client
func NewClient(ctx context.Context, SQSConfig envConfig.SQS, log *zap.Logger) (*Dispatcher, error) {
	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(SQSConfig.Region),
	}

	var clientOpts []func(*sqs.Options)

	// Configure for local development with ElasticMQ
	if SQSConfig.Endpoint != "" {
		log.Info("Configuring SQS for local development",
			zap.String("endpoint", SQSConfig.Endpoint))
		configOpts = append(configOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")))

		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(SQSConfig.Endpoint)
		})
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Info("SQS dispatcher created",
		zap.String("region", SQSConfig.Region),
		zap.String("queue_url", SQSConfig.QueueURL))

	return NewDispatcher(sqs.NewFromConfig(cfg, clientOpts...), SQSConfig.QueueURL, log), nil
}

// NewDispatcher creates a dispatcher on top of an existing sender
func NewDispatcher(sender MessageSender, queueURL string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		queueURL: queueURL,
		log:      log,
	}
}

// QueueURL returns the configured queue URL
func (d *Dispatcher) QueueURL() string {
	return d.queueURL
}

// Dispatch publishes the batch body as a single message
func (d *Dispatcher) Dispatch(ctx context.Context, logEvent *event.LogEvent) error {
	batch := logEvent.Params

	bodyJSON, err := json.Marshal(batch)
	if err != nil {
		d.log.Error("Failed to marshal event batch",
			zap.String("project_id", batch.ProjectID),
			zap.Error(err))
		return fmt.Errorf("failed to marshal event batch: %w", err)
	}

	output, err := d.sender.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(bodyJSON)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AccountID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(batch.AccountID),
			},
			"ProjectID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(batch.ProjectID),
			},
			"Revision": {
				DataType:    aws.String("String"),
				StringValue: aws.String(batch.Revision),
			},
		},
	})
	if err != nil {
		d.log.Error("Failed to send message to SQS",
			zap.String("project_id", batch.ProjectID),
			zap.Int("visitors", len(batch.Visitors)),
			zap.Error(err))
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	d.log.Info("Event batch published to SQS",
		zap.String("message_id", aws.ToString(output.MessageId)),
		zap.Int("visitors", len(batch.Visitors)))

	return nil
}
