package log

import (
	"context"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/nextdhcp/leasehook/core/lease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith(t *testing.T) {
	handler := memory.New()
	l := &log.Logger{
		Handler: handler,
		Level:   log.DebugLevel,
	}

	With(context.Background(), l).Info("no fields")

	ctx := AddEventFields(context.Background(), lease.NewEvent(lease.KindCommit, "aa:bb", "10.0.0.1", ""))
	With(ctx, l).Info("with fields")

	require.Len(t, handler.Entries, 2)
	assert.Empty(t, handler.Entries[0].Fields)

	fields := handler.Entries[1].Fields
	assert.Equal(t, "commit", fields.Get("event"))
	assert.Equal(t, "aa:bb", fields.Get("mac"))
	assert.Equal(t, "10.0.0.1", fields.Get("ip"))
	assert.Nil(t, fields.Get("option"), "the placeholder option is not logged")
}

func TestAddEventFieldsOption(t *testing.T) {
	ctx := AddEventFields(context.Background(), lease.NewEvent(lease.KindCommit, "aa:bb", "10.0.0.1", "rsa-tc_a1234"))
	assert.Equal(t, "rsa-tc_a1234", Fields(ctx).Get("option"))
	assert.Nil(t, Fields(context.Background()))
}
