package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/celsus/core/dispatcher"
)

// ErrEmptyMessage is returned when the dispatch command gets no message body.
var ErrEmptyMessage = errors.New("message must not be empty")

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(opts *RootOptions) *cobra.Command {
	var (
		message      string
		replyAddress string
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch one lending message without the queue",
		Long: `Dispatch a single lending message, read from --message or stdin, the way the consumer
would. Replies are still sent through the core queue gateway.

Example:
  celsus dispatch --message '{"operation":"CANCEL_LEND_BOOK","userId":"u1","bookId":"..."}'
  celsus dispatch --reply-address https://sqs.../replies < message.json`,
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

			d, _, err := rt.newDispatcher(ctx)
			if err != nil {
				return err
			}

			record := dispatcher.Record{MessageID: "cli-" + uuid.NewString(), Body: body}
			if replyAddress != "" {
				record.Attributes = map[string]string{dispatcher.ReplyAddressAttribute: replyAddress}
			}

			if err = d.HandleRecords(ctx, []dispatcher.Record{record}); err != nil {
				return err
			}

			printLine(cmd.OutOrStdout(), "dispatched "+record.MessageID)

			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "message body, read from stdin when empty")
	cmd.Flags().StringVar(&replyAddress, "reply-address", "", "reply address attribute of the message")

	return cmd
}

func readMessage(flag string, stdin io.Reader) ([]byte, error) {
	if strings.TrimSpace(flag) != "" {
		return []byte(flag), nil
	}

	body, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(string(body)) == "" {
		return nil, ErrEmptyMessage
	}

	return body, nil
}
