package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core).Sugar()

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Infow("solved", "status", "Optimal")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Optimal", logs.All()[0].ContextMap()["status"])

	// Missing logger falls back to a usable no-op.
	assert.NotPanics(t, func() { FromContext(context.Background()).Info("dropped") })
}

func TestNew_DevAndProduction(t *testing.T) {
	t.Setenv(EnvVar, "dev")
	assert.NotNil(t, New())
	t.Setenv(EnvVar, "production")
	assert.NotNil(t, New())
}
