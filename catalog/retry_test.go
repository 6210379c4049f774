package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/celsus/core/catalog"
)

func Test_RetryWithExponentialBackoff_Success_NoRetries(t *testing.T) {
	// arrange
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return nil
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, 1, meta.Attempts)
	assert.Equal(t, time.Duration(0), meta.TotalDelay)
	assert.False(t, meta.Exhausted)
}

func Test_RetryWithExponentialBackoff_RetriesTransientConflicts(t *testing.T) {
	// arrange
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		if callCount < 3 {
			return fmt.Errorf("%w: deadlock detected", ErrTransientConflict)
		}
		return nil
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn, WithBaseDelay(time.Millisecond))

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, callCount)
	assert.Equal(t, 3, meta.Attempts)
	assert.Greater(t, meta.TotalDelay, time.Duration(0))
}

func Test_RetryWithExponentialBackoff_PermanentErrorFailsFast(t *testing.T) {
	// arrange
	permanent := errors.New("boom")
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return permanent
	}

	// act
	meta, err := RetryWithExponentialBackoff(context.Background(), fn)

	// assert
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, callCount)
	assert.False(t, meta.Exhausted)
}

func Test_RetryWithExponentialBackoff_ExhaustsAttempts(t *testing.T) {
	// arrange
	callCount := 0
	fn := func(_ context.Context) error {
		callCount++
		return ErrTransientConflict
	}

	// act
	meta, err := RetryWithExponentialBackoff(
		context.Background(),
		fn,
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond),
		WithJitterFactor(0),
	)

	// assert
	assert.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, 3, callCount)
	assert.True(t, meta.Exhausted)
}

func Test_RetryWithExponentialBackoff_StopsWhenContextIsDone(t *testing.T) {
	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(_ context.Context) error {
		cancel()
		return ErrTransientConflict
	}

	// act
	meta, err := RetryWithExponentialBackoff(ctx, fn, WithBaseDelay(time.Second))

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, meta.Attempts)
}

func Test_RetryWithExponentialBackoff_InvalidOptions(t *testing.T) {
	fn := func(_ context.Context) error { return nil }

	_, err := RetryWithExponentialBackoff(context.Background(), fn, WithMaxAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = RetryWithExponentialBackoff(context.Background(), fn, WithBaseDelay(-time.Millisecond))
	assert.ErrorIs(t, err, ErrNegativeBaseDelay)

	_, err = RetryWithExponentialBackoff(context.Background(), fn, WithJitterFactor(1.5))
	assert.ErrorIs(t, err, ErrInvalidJitterFactor)
}
