package httpapi_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/celsus/core/catalog"
)

func mustGuard(t *testing.T, ownerID string) catalog.AuthorizationGuard {
	t.Helper()

	guard, err := catalog.GuardFor(ownerID)
	require.NoError(t, err)

	return guard
}

func slogLogger(handler slog.Handler) *slog.Logger {
	return slog.New(handler)
}
