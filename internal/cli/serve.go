package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/celsus/core/httpapi"
)

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	var withoutConsumer bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and consume the core queue",
		Long: `Serve the catalog REST API. When a core queue url is configured, lending messages
are consumed from it in the same process.

Example:
  celsus serve --config ./celsus.yaml
  CELSUS_POSTGRES_DSN=postgres://localhost/celsus celsus serve --without-consumer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, opts, withoutConsumer)
		},
	}

	cmd.Flags().BoolVar(&withoutConsumer, "without-consumer", false, "do not consume the core queue")

	return cmd
}

type httpServer interface {
	Run(ctx context.Context, address string) error
}

type queueConsumer interface {
	Run(ctx context.Context) error
}

func serve(ctx context.Context, opts *RootOptions, withoutConsumer bool) error {
	rt, err := newRuntime(ctx, opts, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	server, err := httpapi.NewServer(rt.store, httpapi.WithLogger(rt.logger))
	if err != nil {
		return err
	}

	var newConsumer func(context.Context) (queueConsumer, error)
	if !withoutConsumer && rt.cfg.CoreQueueURL != "" {
		newConsumer = func(ctx context.Context) (queueConsumer, error) {
			consumer, err := rt.newConsumer(ctx)
			if err != nil {
				return nil, err
			}

			rt.logger.Info("consuming core queue", "queue_url", rt.cfg.CoreQueueURL)

			return consumer, nil
		}
	}

	return runServices(ctx, rt.logger, server, rt.cfg.HTTP.Address, newConsumer)
}

// runServices builds the consumer before anything starts, then runs the server and the consumer
// until one of them fails or ctx is done. A nil newConsumer runs the server alone.
func runServices(
	ctx context.Context,
	logger *slog.Logger,
	server httpServer,
	address string,
	newConsumer func(context.Context) (queueConsumer, error),
) error {
	var consumer queueConsumer

	if newConsumer != nil {
		var err error
		if consumer, err = newConsumer(ctx); err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("http server listening", "address", address)
		return server.Run(groupCtx, address)
	})

	if consumer != nil {
		group.Go(func() error {
			return consumer.Run(groupCtx)
		})
	}

	return group.Wait()
}
