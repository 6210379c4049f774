package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHTTPServer struct {
	started atomic.Bool
	err     error
}

func (s *fakeHTTPServer) Run(ctx context.Context, _ string) error {
	s.started.Store(true)

	if s.err != nil {
		return s.err
	}

	<-ctx.Done()

	return nil
}

type fakeQueueConsumer struct {
	stopped atomic.Bool
}

func (c *fakeQueueConsumer) Run(ctx context.Context) error {
	<-ctx.Done()
	c.stopped.Store(true)

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_RunServices_DoesNotStartTheServerWhenTheConsumerCannotBeBuilt(t *testing.T) {
	// arrange
	server := &fakeHTTPServer{}
	buildErr := errors.New("no aws credentials")

	// act
	err := runServices(context.Background(), discardLogger(), server, ":0", func(context.Context) (queueConsumer, error) {
		return nil, buildErr
	})

	// assert
	require.ErrorIs(t, err, buildErr)
	assert.False(t, server.started.Load())
}

func Test_RunServices_StopsTheConsumerWhenTheServerFails(t *testing.T) {
	// arrange
	serverErr := errors.New("address in use")
	server := &fakeHTTPServer{err: serverErr}
	consumer := &fakeQueueConsumer{}

	// act
	err := runServices(context.Background(), discardLogger(), server, ":0", func(context.Context) (queueConsumer, error) {
		return consumer, nil
	})

	// assert
	require.ErrorIs(t, err, serverErr)
	assert.True(t, server.started.Load())
	assert.True(t, consumer.stopped.Load())
}

func Test_RunServices_RunsTheServerAloneUntilCancelled(t *testing.T) {
	// arrange
	server := &fakeHTTPServer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	err := runServices(ctx, discardLogger(), server, ":0", nil)

	// assert
	require.NoError(t, err)
	assert.True(t, server.started.Load())
}
