package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })

	ctx := WithContext(context.Background(), String("request_id", "abc"))
	With(Int("attempt", 2)).Info(ctx, "sweep finished", Bool("notified", true))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sweep finished", entries[0].Message)
	assert.Equal(t, "abc", fields["request_id"])
	assert.Equal(t, int64(2), fields["attempt"])
	assert.Equal(t, true, fields["notified"])
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init("loud", false)
	require.Error(t, err)
}
