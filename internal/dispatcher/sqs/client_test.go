package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/event"
)

// MockSender is a mock implementation of MessageSender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.SendMessageOutput), args.Error(1)
}

func newLogEvent() *event.LogEvent {
	return &event.LogEvent{
		URL:      event.EventEndpoint,
		HTTPVerb: event.HTTPVerb,
		Params: event.EventBatch{
			AccountID: "12001",
			ProjectID: "111001",
			Revision:  "42",
			Visitors:  []event.Visitor{{VisitorID: "user1"}},
		},
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	mockSender := new(MockSender)
	mockSender.On("SendMessage", mock.Anything, mock.MatchedBy(func(input *sqs.SendMessageInput) bool {
		var batch event.EventBatch
		if err := json.Unmarshal([]byte(aws.ToString(input.MessageBody)), &batch); err != nil {
			return false
		}
		return aws.ToString(input.QueueUrl) == "http://localhost:9324/queue/events" &&
			batch.ProjectID == "111001" &&
			len(batch.Visitors) == 1 &&
			aws.ToString(input.MessageAttributes["AccountID"].StringValue) == "12001" &&
			aws.ToString(input.MessageAttributes["Revision"].StringValue) == "42"
	})).Return(&sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil)

	d := NewDispatcher(mockSender, "http://localhost:9324/queue/events", zap.NewNop())
	err := d.Dispatch(context.Background(), newLogEvent())

	require.NoError(t, err)
	mockSender.AssertExpectations(t)
}

func TestDispatcher_DispatchError(t *testing.T) {
	mockSender := new(MockSender)
	mockSender.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("queue unavailable"))

	d := NewDispatcher(mockSender, "http://localhost:9324/queue/events", zap.NewNop())
	err := d.Dispatch(context.Background(), newLogEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send message to SQS")
	assert.Equal(t, "http://localhost:9324/queue/events", d.QueueURL())
}
