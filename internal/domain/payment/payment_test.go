package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleAndRefund(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Payment{ID: "pay-1", OrderID: "ORD-1", Status: StatusFailed, CreatedAt: created, UpdatedAt: created}

	now := created.Add(time.Minute)
	require.NoError(t, p.Settle("card", 2360, "TXN-1", now))
	assert.Equal(t, StatusSuccess, p.Status)
	assert.Equal(t, "pay-1", p.ID)
	assert.Equal(t, created, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)

	assert.ErrorIs(t, p.Settle("card", 2360, "TXN-2", now), ErrAlreadyPaid)
	assert.Equal(t, "TXN-1", p.TransactionRef)

	require.NoError(t, p.Refund(now.Add(time.Minute)))
	assert.Equal(t, StatusRefunded, p.Status)
	assert.ErrorIs(t, p.Refund(now), ErrNotRefundable)

	require.NoError(t, p.Settle("card", 2360, "TXN-3", now.Add(time.Hour)))
	assert.Equal(t, StatusSuccess, p.Status)
}

func TestClone(t *testing.T) {
	p := &Payment{ID: "pay-1", Status: StatusPending}
	c := p.Clone()
	c.Status = StatusSuccess
	assert.Equal(t, StatusPending, p.Status)
	assert.Nil(t, (*Payment)(nil).Clone())
}
