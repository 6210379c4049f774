package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewConsumeCommand creates the consume command.
func NewConsumeCommand(opts *RootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume lending messages from the core queue",
		Long: `Poll the core queue and dispatch every lending message to the state machine.
A message is deleted only after it was dispatched successfully.

Example:
  celsus consume
  celsus consume --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, opts, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			consumer, err := rt.newConsumer(ctx)
			if err != nil {
				return err
			}

			if once {
				received, pollErr := consumer.PollOnce(ctx)
				if pollErr != nil {
					return pollErr
				}

				if !received {
					printLine(cmd.OutOrStdout(), "no message")
				}

				return nil
			}

			return consumer.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "poll a single time and exit")

	return cmd
}
