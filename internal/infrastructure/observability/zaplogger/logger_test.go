package zaplogger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

func TestLoggerEncodesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core), observability.F("component", "orders"))

	l.With(observability.F("order_id", "ORD-1")).Warn("order_cancelled",
		observability.F("status", order.StatusCancelled),
		observability.F("total", decimal.RequireFromString("23.60")),
		observability.F("latency", 150*time.Millisecond),
		observability.Err(errors.New("gateway down")),
		observability.F("skipped", nil),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "order_cancelled", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "orders", fields["component"])
	assert.Equal(t, "ORD-1", fields["order_id"])
	assert.Equal(t, "cancelled", fields["status"])
	assert.Equal(t, "23.6", fields["total"])
	assert.Equal(t, 150*time.Millisecond, fields["latency"])
	assert.Equal(t, "gateway down", fields["error"])
	assert.NotContains(t, fields, "skipped")
}

func TestWithoutFieldsReturnsSameLogger(t *testing.T) {
	l := New(zap.NewNop())
	assert.Same(t, l, l.With())
}
