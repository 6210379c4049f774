package cli

import (
	"context"
	"errors"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

// ErrInvalidMessage is returned when the send command gets a body that is not JSON.
var ErrInvalidMessage = errors.New("message must be valid JSON")

// replySender is the part of sqsgateway.Gateway the send command uses.
type replySender interface {
	SendMessageWithReply(ctx context.Context, message any, destination string) (string, error)
}

// NewSendCommand creates the send command.
func NewSendCommand(opts *RootOptions) *cobra.Command {
	var (
		message string
		queue   string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message to another service's queue",
		Long: `Send a JSON message, read from --message or stdin, to the given queue. The message
carries the core queue as its replyAddress attribute, so the answer comes back to the consumer.

Example:
  celsus send --queue https://sqs.../lending --message '{"operation":"PING"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readMessage(message, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			rt, err := newRuntime(ctx, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			gateway, _, err := rt.newGateway(ctx)
			if err != nil {
				return err
			}

			return sendMessage(ctx, gateway, body, queue, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message body, read from stdin when empty")
	cmd.Flags().StringVar(&queue, "queue", "", "destination queue url")
	_ = cmd.MarkFlagRequired("queue")

	return cmd
}

func sendMessage(ctx context.Context, sender replySender, body []byte, queue string, out io.Writer) error {
	if !jsoniter.Valid(body) {
		return ErrInvalidMessage
	}

	id, err := sender.SendMessageWithReply(ctx, jsoniter.RawMessage(body), queue)
	if err != nil {
		return err
	}

	printLine(out, "sent "+id)

	return nil
}
