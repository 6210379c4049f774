package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/celsus/core/catalog"
	"github.com/celsus/core/catalog/postgresengine"
	"github.com/celsus/core/config"
	"github.com/celsus/core/dispatcher"
	"github.com/celsus/core/lending"
	"github.com/celsus/core/messaging/sqsgateway"
	"github.com/celsus/core/oteladapters"
	"github.com/celsus/core/thumbnails/s3store"
)

// ErrMissingQueueURL is returned by commands that need the core queue when none is configured.
var ErrMissingQueueURL = errors.New("core queue url is not configured")

// runtime is everything a command needs once the configuration is loaded.
type runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	contextual catalog.ContextualLogger
	providers  *config.ObservabilityProviders
	store      *postgresengine.CatalogStore
	closeStore func()
	aws        *aws.Config
}

func newRuntime(ctx context.Context, opts *RootOptions, logOutput io.Writer) (*runtime, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(logOutput, &slog.HandlerOptions{Level: cfg.SlogLevel()})

	rt := &runtime{
		cfg:        cfg,
		logger:     slog.New(handler),
		contextual: oteladapters.NewSlogBridgeLoggerWithHandler(handler),
	}

	if rt.providers, err = config.NewObservabilityProviders(ctx, cfg.Observability, Version); err != nil {
		return nil, err
	}

	storeOptions := []postgresengine.Option{postgresengine.WithContextualLogger(rt.contextual)}
	if rt.providers != nil {
		storeOptions = append(storeOptions,
			postgresengine.WithMetrics(rt.providers.Metrics),
			postgresengine.WithTracing(rt.providers.Tracing),
		)
	}

	if cfg.ImagesBucket != "" {
		thumbnails, thumbErr := rt.thumbnailStore(ctx)
		if thumbErr != nil {
			rt.Close()
			return nil, thumbErr
		}

		storeOptions = append(storeOptions, postgresengine.WithThumbnailStore(thumbnails))
	}

	if rt.store, rt.closeStore, err = cfg.Postgres.OpenCatalogStore(ctx, storeOptions...); err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

// Close releases the database connections and flushes telemetry.
func (rt *runtime) Close() {
	if rt.closeStore != nil {
		rt.closeStore()
	}

	if err := rt.providers.Shutdown(); err != nil {
		rt.logger.Error("observability shutdown failed", "error", err.Error())
	}
}

func (rt *runtime) awsConfig(ctx context.Context) (aws.Config, error) {
	if rt.aws == nil {
		cfg, err := rt.cfg.AWSConfig(ctx)
		if err != nil {
			return aws.Config{}, err
		}

		rt.aws = &cfg
	}

	return *rt.aws, nil
}

func (rt *runtime) thumbnailStore(ctx context.Context) (*s3store.Store, error) {
	awsCfg, err := rt.awsConfig(ctx)
	if err != nil {
		return nil, err
	}

	return s3store.New(
		s3store.NewClient(awsCfg, rt.cfg.CloudServicesEndpoint),
		rt.cfg.ImagesBucket,
		s3store.WithKeyPrefix(rt.cfg.BookThumbnailsKey),
		s3store.WithLogger(rt.logger),
	)
}

// newConsumer wires queue, gateway, lending state machine and dispatcher together.
func (rt *runtime) newConsumer(ctx context.Context) (*sqsgateway.Consumer, error) {
	d, client, err := rt.newDispatcher(ctx)
	if err != nil {
		return nil, err
	}

	return sqsgateway.NewConsumer(client, rt.cfg.CoreQueueURL, d,
		sqsgateway.WithWaitTimeSeconds(rt.cfg.Consumer.WaitTimeSeconds),
		sqsgateway.WithPollsPerSecond(rt.cfg.Consumer.PollsPerSecond),
		sqsgateway.WithConsumerLogger(rt.logger),
	)
}

// newGateway returns a gateway that advertises the core queue as reply address.
func (rt *runtime) newGateway(ctx context.Context) (*sqsgateway.Gateway, sqsgateway.API, error) {
	if rt.cfg.CoreQueueURL == "" {
		return nil, nil, ErrMissingQueueURL
	}

	awsCfg, err := rt.awsConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := sqsgateway.NewClient(awsCfg, rt.cfg.CloudServicesEndpoint)

	gateway, err := sqsgateway.NewGateway(client,
		sqsgateway.WithReplyAddress(rt.cfg.CoreQueueURL),
		sqsgateway.WithGatewayLogger(rt.logger),
	)
	if err != nil {
		return nil, nil, err
	}

	return gateway, client, nil
}

func (rt *runtime) newDispatcher(ctx context.Context) (*dispatcher.Dispatcher, sqsgateway.API, error) {
	gateway, client, err := rt.newGateway(ctx)
	if err != nil {
		return nil, nil, err
	}

	machine, err := lending.NewStateMachine(rt.store, lending.WithContextualLogger(rt.contextual))
	if err != nil {
		return nil, nil, err
	}

	registry, err := dispatcher.NewLendingRegistry(machine, gateway)
	if err != nil {
		return nil, nil, err
	}

	options := []dispatcher.Option{dispatcher.WithContextualLogger(rt.contextual)}
	if rt.providers != nil {
		options = append(options,
			dispatcher.WithMetrics(rt.providers.Metrics),
			dispatcher.WithTracing(rt.providers.Tracing),
		)
	}

	d, err := dispatcher.New(registry, options...)
	if err != nil {
		return nil, nil, err
	}

	return d, client, nil
}
