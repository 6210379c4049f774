package sqsgateway_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celsus/core/dispatcher"
	. "github.com/celsus/core/messaging/sqsgateway"
	. "github.com/celsus/core/testutil/helper"
)

const (
	coreQueueURL    = "https://sqs.eu-central-1.amazonaws.com/000000000000/core"
	lendingQueueURL = "https://sqs.eu-central-1.amazonaws.com/000000000000/lending"
)

type fakeSQS struct {
	sent       []*sqs.SendMessageInput
	received   []*sqs.ReceiveMessageInput
	deleted    []*sqs.DeleteMessageInput
	inbox      []types.Message
	sendErr    error
	receiveErr error
	deleteErr  error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.sent = append(f.sent, params)

	return &sqs.SendMessageOutput{MessageId: aws.String("id-1")}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received = append(f.received, params)

	if f.receiveErr != nil {
		return nil, f.receiveErr
	}

	if len(f.inbox) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}

	message := f.inbox[0]
	f.inbox = f.inbox[1:]

	return &sqs.ReceiveMessageOutput{Messages: []types.Message{message}}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}

	f.deleted = append(f.deleted, params)

	return &sqs.DeleteMessageOutput{}, nil
}

type recordHandlerSpy struct {
	batches [][]dispatcher.Record
	err     error
}

func (s *recordHandlerSpy) HandleRecords(_ context.Context, records []dispatcher.Record) error {
	s.batches = append(s.batches, records)
	return s.err
}

func givenMessage(id, body string, replyAddress string) types.Message {
	message := types.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("receipt-" + id),
		Body:          aws.String(body),
	}

	if replyAddress != "" {
		message.MessageAttributes = map[string]types.MessageAttributeValue{
			dispatcher.ReplyAddressAttribute: {DataType: aws.String("String"), StringValue: aws.String(replyAddress)},
		}
	}

	return message
}

func Test_Gateway_SendMessageEncodesJSON(t *testing.T) {
	// arrange
	api := &fakeSQS{}
	logHandler := NewLogHandlerSpy(false)
	gateway, err := NewGateway(api, WithGatewayLogger(slog.New(logHandler)))
	require.NoError(t, err)

	// act
	id, sendErr := gateway.SendMessage(context.Background(), map[string]string{"operation": "PING"}, lendingQueueURL)

	// assert
	require.NoError(t, sendErr)
	assert.Equal(t, "id-1", id)
	require.Len(t, api.sent, 1)
	assert.Equal(t, lendingQueueURL, aws.ToString(api.sent[0].QueueUrl))
	assert.JSONEq(t, `{"operation":"PING"}`, aws.ToString(api.sent[0].MessageBody))
	assert.Empty(t, api.sent[0].MessageAttributes)
	assert.True(t, logHandler.HasInfoLogWithMessage("message sent").WithAttribute("message_id", "id-1").Assert())
}

func Test_Gateway_SendMessageWithReplyAdvertisesTheReplyQueue(t *testing.T) {
	// arrange
	api := &fakeSQS{}
	gateway, err := NewGateway(api, WithReplyAddress(coreQueueURL))
	require.NoError(t, err)

	// act
	_, sendErr := gateway.SendMessageWithReply(context.Background(), map[string]string{"operation": "PING"}, lendingQueueURL)

	// assert
	require.NoError(t, sendErr)
	require.Len(t, api.sent, 1)
	attribute, ok := api.sent[0].MessageAttributes[dispatcher.ReplyAddressAttribute]
	require.True(t, ok)
	assert.Equal(t, "String", aws.ToString(attribute.DataType))
	assert.Equal(t, coreQueueURL, aws.ToString(attribute.StringValue))
}

func Test_Gateway_SendMessageWithReplyForwardsARawBodyVerbatim(t *testing.T) {
	// arrange
	api := &fakeSQS{}
	gateway, err := NewGateway(api, WithReplyAddress(coreQueueURL))
	require.NoError(t, err)

	// act
	_, sendErr := gateway.SendMessageWithReply(context.Background(), jsoniter.RawMessage(`{"operation":"PING","n":1}`), lendingQueueURL)

	// assert
	require.NoError(t, sendErr)
	require.Len(t, api.sent, 1)
	assert.JSONEq(t, `{"operation":"PING","n":1}`, aws.ToString(api.sent[0].MessageBody))
}

func Test_Gateway_SendMessageFailures(t *testing.T) {
	// arrange
	sendErr := errors.New("throttled")
	failing, err := NewGateway(&fakeSQS{sendErr: sendErr})
	require.NoError(t, err)
	working, err := NewGateway(&fakeSQS{})
	require.NoError(t, err)

	// act
	_, apiErr := failing.SendMessage(context.Background(), map[string]string{}, lendingQueueURL)
	_, encodeErr := working.SendMessage(context.Background(), make(chan int), lendingQueueURL)
	_, destinationErr := working.SendMessage(context.Background(), map[string]string{}, "")
	_, nilErr := NewGateway(nil)

	// assert
	assert.ErrorIs(t, apiErr, ErrSendingMessageFailed)
	assert.ErrorIs(t, apiErr, sendErr)
	assert.ErrorIs(t, encodeErr, ErrEncodingMessageFailed)
	assert.ErrorIs(t, destinationErr, ErrEmptyDestination)
	assert.ErrorIs(t, nilErr, ErrNilAPI)
}

func Test_Consumer_PollOnceDispatchesAndDeletes(t *testing.T) {
	// arrange
	api := &fakeSQS{inbox: []types.Message{givenMessage("m1", `{"operation":"RETURN_LENT_BOOK"}`, lendingQueueURL)}}
	handler := &recordHandlerSpy{}
	consumer, err := NewConsumer(api, coreQueueURL, handler, WithWaitTimeSeconds(5))
	require.NoError(t, err)

	// act
	received, pollErr := consumer.PollOnce(context.Background())

	// assert
	require.NoError(t, pollErr)
	assert.True(t, received)

	require.Len(t, api.received, 1)
	assert.Equal(t, int32(1), api.received[0].MaxNumberOfMessages)
	assert.Equal(t, int32(5), api.received[0].WaitTimeSeconds)
	assert.Equal(t, []string{"All"}, api.received[0].MessageAttributeNames)

	require.Len(t, handler.batches, 1)
	require.Len(t, handler.batches[0], 1)
	record := handler.batches[0][0]
	assert.Equal(t, "m1", record.MessageID)
	assert.JSONEq(t, `{"operation":"RETURN_LENT_BOOK"}`, string(record.Body))
	assert.Equal(t, lendingQueueURL, record.Attributes[dispatcher.ReplyAddressAttribute])

	require.Len(t, api.deleted, 1)
	assert.Equal(t, "receipt-m1", aws.ToString(api.deleted[0].ReceiptHandle))
	assert.Equal(t, coreQueueURL, aws.ToString(api.deleted[0].QueueUrl))
}

func Test_Consumer_PollOnceKeepsMessagesThatFailedToDispatch(t *testing.T) {
	// arrange
	dispatchErr := errors.New("unknown operation")
	api := &fakeSQS{inbox: []types.Message{givenMessage("m1", `{"operation":"NOPE"}`, "")}}
	logHandler := NewLogHandlerSpy(false)
	consumer, err := NewConsumer(api, coreQueueURL, &recordHandlerSpy{err: dispatchErr}, WithConsumerLogger(slog.New(logHandler)))
	require.NoError(t, err)

	// act
	received, pollErr := consumer.PollOnce(context.Background())

	// assert
	assert.True(t, received)
	assert.ErrorIs(t, pollErr, dispatchErr)
	assert.Empty(t, api.deleted)
	assert.True(t, logHandler.HasErrorLogWithMessage("dispatching message failed, leaving it for redelivery").
		WithAttribute("message_id", "m1").
		Assert())
}

func Test_Consumer_PollOnceOnAnEmptyQueue(t *testing.T) {
	// arrange
	api := &fakeSQS{}
	handler := &recordHandlerSpy{}
	consumer, err := NewConsumer(api, coreQueueURL, handler)
	require.NoError(t, err)

	// act
	received, pollErr := consumer.PollOnce(context.Background())

	// assert
	require.NoError(t, pollErr)
	assert.False(t, received)
	assert.Empty(t, handler.batches)
}

func Test_Consumer_PollOnceReportsTransportErrors(t *testing.T) {
	// arrange
	receiveErr := errors.New("access denied")
	deleteErr := errors.New("receipt expired")
	receiving, err := NewConsumer(&fakeSQS{receiveErr: receiveErr}, coreQueueURL, &recordHandlerSpy{})
	require.NoError(t, err)
	deleting, err := NewConsumer(
		&fakeSQS{deleteErr: deleteErr, inbox: []types.Message{givenMessage("m1", `{}`, "")}},
		coreQueueURL,
		&recordHandlerSpy{},
	)
	require.NoError(t, err)

	// act
	_, receiveResult := receiving.PollOnce(context.Background())
	_, deleteResult := deleting.PollOnce(context.Background())

	// assert
	assert.ErrorIs(t, receiveResult, ErrReceivingMessageFailed)
	assert.ErrorIs(t, receiveResult, receiveErr)
	assert.ErrorIs(t, deleteResult, ErrDeletingMessageFailed)
	assert.ErrorIs(t, deleteResult, deleteErr)
}

func Test_Consumer_RunStopsWithTheContext(t *testing.T) {
	// arrange
	api := &fakeSQS{inbox: []types.Message{givenMessage("m1", `{}`, ""), givenMessage("m2", `{}`, "")}}
	handler := &recordHandlerSpy{}
	consumer, err := NewConsumer(api, coreQueueURL, handler, WithPollsPerSecond(1000))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// act
	runErr := consumer.Run(ctx)

	// assert
	assert.NoError(t, runErr)
	assert.Len(t, handler.batches, 2)
	assert.Len(t, api.deleted, 2)
}

func Test_NewConsumer_ValidatesItsArguments(t *testing.T) {
	// arrange
	api := &fakeSQS{}
	handler := &recordHandlerSpy{}

	// act
	_, nilAPI := NewConsumer(nil, coreQueueURL, handler)
	_, noQueue := NewConsumer(api, "", handler)
	_, noHandler := NewConsumer(api, coreQueueURL, nil)
	_, badWait := NewConsumer(api, coreQueueURL, handler, WithWaitTimeSeconds(21))
	_, badRate := NewConsumer(api, coreQueueURL, handler, WithPollsPerSecond(0))

	// assert
	assert.ErrorIs(t, nilAPI, ErrNilAPI)
	assert.ErrorIs(t, noQueue, ErrEmptyQueueURL)
	assert.ErrorIs(t, noHandler, ErrNilDispatcher)
	assert.ErrorIs(t, badWait, ErrInvalidWaitTime)
	assert.ErrorIs(t, badRate, ErrInvalidPollRate)
}
