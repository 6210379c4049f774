package sqsgateway

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	jsoniter "github.com/json-iterator/go"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/dispatcher"
)

const (
	logMsgMessageSent = "message sent"
	logMsgSendFailed  = "fail to send message"

	logAttrMessageID   = "message_id"
	logAttrDestination = "destination"
	logAttrError       = "error"

	attributeDataTypeString = "String"
)

var (
	// ErrNilAPI is returned when no SQS client is given.
	ErrNilAPI = errors.New("sqs client must not be nil")

	// ErrEncodingMessageFailed is returned when a message cannot be encoded as JSON.
	ErrEncodingMessageFailed = errors.New("encoding message failed")

	// ErrSendingMessageFailed wraps errors of the SQS SendMessage call.
	ErrSendingMessageFailed = errors.New("sending message failed")

	// ErrEmptyDestination is returned when a message has no destination queue.
	ErrEmptyDestination = errors.New("destination must not be empty")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// API is the subset of the SQS client the package uses. *sqs.Client satisfies it.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// NewClient builds an SQS client. A non-empty endpoint replaces the regional one,
// which is how local stacks are reached.
func NewClient(cfg aws.Config, endpoint string) *sqs.Client {
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// Gateway sends messages to SQS queues.
type Gateway struct {
	api          API
	replyAddress string
	logger       catalog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway) error

// WithReplyAddress sets the queue URL that SendMessageWithReply advertises, usually the core queue.
func WithReplyAddress(queueURL string) GatewayOption {
	return func(g *Gateway) error {
		g.replyAddress = queueURL
		return nil
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger catalog.Logger) GatewayOption {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// NewGateway creates a Gateway on top of an SQS client.
func NewGateway(api API, options ...GatewayOption) (*Gateway, error) {
	if api == nil {
		return nil, ErrNilAPI
	}

	g := &Gateway{api: api}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// SendMessage encodes the message as JSON and sends it to the destination queue.
func (g *Gateway) SendMessage(ctx context.Context, message any, destination string) (string, error) {
	return g.send(ctx, message, destination, nil)
}

// SendMessageWithReply is SendMessage with a replyAddress attribute naming the configured reply queue.
func (g *Gateway) SendMessageWithReply(ctx context.Context, message any, destination string) (string, error) {
	attributes := map[string]types.MessageAttributeValue{
		dispatcher.ReplyAddressAttribute: {
			DataType:    aws.String(attributeDataTypeString),
			StringValue: aws.String(g.replyAddress),
		},
	}

	return g.send(ctx, message, destination, attributes)
}

func (g *Gateway) send(ctx context.Context, message any, destination string, attributes map[string]types.MessageAttributeValue) (string, error) {
	if destination == "" {
		return "", ErrEmptyDestination
	}

	body, err := json.MarshalToString(message)
	if err != nil {
		return "", errors.Join(ErrEncodingMessageFailed, err)
	}

	out, err := g.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(destination),
		MessageBody:       aws.String(body),
		MessageAttributes: attributes,
	})
	if err != nil {
		if g.logger != nil {
			g.logger.Error(logMsgSendFailed, logAttrDestination, destination, logAttrError, err.Error())
		}

		return "", errors.Join(ErrSendingMessageFailed, err)
	}

	messageID := aws.ToString(out.MessageId)

	if g.logger != nil {
		g.logger.Info(logMsgMessageSent, logAttrMessageID, messageID, logAttrDestination, destination)
	}

	return messageID, nil
}
