package sqsgateway

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/time/rate"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/dispatcher"
)

const (
	defaultWaitTimeSeconds = 20
	defaultPollsPerSecond  = 1.0
	maxWaitTimeSeconds     = 20

	allMessageAttributes = "All"

	logMsgConsumerStarted = "consumer started"
	logMsgConsumerStopped = "consumer stopped"
	logMsgReceiveFailed   = "receiving message failed"
	logMsgDispatchFailed  = "dispatching message failed, leaving it for redelivery"
	logMsgDeleteFailed    = "deleting message failed"
	logMsgMessageHandled  = "message handled"

	logAttrQueueURL = "queue_url"
)

var (
	// ErrNilDispatcher is returned when a consumer is built without dispatcher.
	ErrNilDispatcher = errors.New("dispatcher must not be nil")

	// ErrEmptyQueueURL is returned when a consumer is built without queue URL.
	ErrEmptyQueueURL = errors.New("queue url must not be empty")

	// ErrInvalidWaitTime is returned for wait times outside 0..20 seconds.
	ErrInvalidWaitTime = errors.New("wait time must be between 0 and 20 seconds")

	// ErrInvalidPollRate is returned for a non-positive poll rate.
	ErrInvalidPollRate = errors.New("polls per second must be positive")

	// ErrReceivingMessageFailed wraps errors of the SQS ReceiveMessage call.
	ErrReceivingMessageFailed = errors.New("receiving message failed")

	// ErrDeletingMessageFailed wraps errors of the SQS DeleteMessage call.
	ErrDeletingMessageFailed = errors.New("deleting message failed")
)

// RecordHandler consumes a batch of inbound records. *dispatcher.Dispatcher satisfies it.
type RecordHandler interface {
	HandleRecords(ctx context.Context, records []dispatcher.Record) error
}

// Consumer feeds messages of one queue to a RecordHandler.
type Consumer struct {
	api             API
	queueURL        string
	handler         RecordHandler
	limiter         *rate.Limiter
	waitTimeSeconds int32
	logger          catalog.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer) error

// WithWaitTimeSeconds sets the long-poll duration of each receive call.
func WithWaitTimeSeconds(seconds int) ConsumerOption {
	return func(c *Consumer) error {
		if seconds < 0 || seconds > maxWaitTimeSeconds {
			return ErrInvalidWaitTime
		}

		c.waitTimeSeconds = int32(seconds)

		return nil
	}
}

// WithPollsPerSecond caps how often the queue is polled.
func WithPollsPerSecond(polls float64) ConsumerOption {
	return func(c *Consumer) error {
		if polls <= 0 {
			return ErrInvalidPollRate
		}

		c.limiter = rate.NewLimiter(rate.Limit(polls), 1)

		return nil
	}
}

// WithConsumerLogger sets the logger.
func WithConsumerLogger(logger catalog.Logger) ConsumerOption {
	return func(c *Consumer) error {
		c.logger = logger
		return nil
	}
}

// NewConsumer creates a Consumer for the queue.
func NewConsumer(api API, queueURL string, handler RecordHandler, options ...ConsumerOption) (*Consumer, error) {
	if api == nil {
		return nil, ErrNilAPI
	}

	if queueURL == "" {
		return nil, ErrEmptyQueueURL
	}

	if handler == nil {
		return nil, ErrNilDispatcher
	}

	c := &Consumer{
		api:             api,
		queueURL:        queueURL,
		handler:         handler,
		limiter:         rate.NewLimiter(rate.Limit(defaultPollsPerSecond), 1),
		waitTimeSeconds: defaultWaitTimeSeconds,
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Run polls until the context ends. Receive and dispatch failures are logged and polling goes on.
func (c *Consumer) Run(ctx context.Context) error {
	c.logInfo(logMsgConsumerStarted, logAttrQueueURL, c.queueURL)
	defer c.logInfo(logMsgConsumerStopped, logAttrQueueURL, c.queueURL)

	for {
		// Wait fails only when the context ends before the next token.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}

		if _, err := c.PollOnce(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

// PollOnce receives at most one message and handles it.
// It reports whether a message was received.
func (c *Consumer) PollOnce(ctx context.Context) (bool, error) {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.queueURL),
		MaxNumberOfMessages:   1,
		WaitTimeSeconds:       c.waitTimeSeconds,
		MessageAttributeNames: []string{allMessageAttributes},
	})
	if err != nil {
		err = errors.Join(ErrReceivingMessageFailed, err)
		c.logError(logMsgReceiveFailed, logAttrQueueURL, c.queueURL, logAttrError, err.Error())

		return false, err
	}

	if len(out.Messages) == 0 {
		return false, nil
	}

	message := out.Messages[0]
	messageID := aws.ToString(message.MessageId)

	if err = c.handler.HandleRecords(ctx, []dispatcher.Record{toRecord(message)}); err != nil {
		c.logError(logMsgDispatchFailed, logAttrMessageID, messageID, logAttrError, err.Error())
		return true, err
	}

	_, err = c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: message.ReceiptHandle,
	})
	if err != nil {
		err = errors.Join(ErrDeletingMessageFailed, err)
		c.logError(logMsgDeleteFailed, logAttrMessageID, messageID, logAttrError, err.Error())

		return true, err
	}

	c.logInfo(logMsgMessageHandled, logAttrMessageID, messageID)

	return true, nil
}

func toRecord(message types.Message) dispatcher.Record {
	attributes := make(map[string]string, len(message.MessageAttributes))
	for name, value := range message.MessageAttributes {
		if value.StringValue != nil {
			attributes[name] = *value.StringValue
		}
	}

	return dispatcher.Record{
		MessageID:  aws.ToString(message.MessageId),
		Body:       []byte(aws.ToString(message.Body)),
		Attributes: attributes,
	}
}

func (c *Consumer) logInfo(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Info(msg, args...)
	}
}

func (c *Consumer) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
