package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
)

func newOrder(t *testing.T, id string) *domain.Order {
	t.Helper()
	o, err := domain.New(id, "u1",
		[]domain.LineItem{{ProductID: "p1", Quantity: 1, PriceAtPurchase: 100}},
		domain.Totals{Subtotal: 100, Tax: 18, GrandTotal: 118},
		domain.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		"card", time.Now())
	require.NoError(t, err)
	return o
}

func TestOrderRepositoryInsertAndList(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	for _, id := range []string{"ORD-3", "ORD-1", "ORD-2"} {
		require.NoError(t, r.Insert(ctx, newOrder(t, id)))
	}
	assert.ErrorIs(t, r.Insert(ctx, newOrder(t, "ORD-1")), domain.ErrConflict)

	all, err := r.List(ctx)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, o := range all {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"ORD-3", "ORD-1", "ORD-2"}, ids)

	all[0].Status = domain.StatusShipped
	got, err := r.FindByID(ctx, "ORD-3")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	_, err = r.FindByID(ctx, "ORD-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()
	require.NoError(t, r.Insert(ctx, newOrder(t, "ORD-1")))

	boom := errors.New("boom")
	_, err := r.Update(ctx, "ORD-1", func(o *domain.Order) error {
		o.Status = domain.StatusCancelled
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, _ := r.FindByID(ctx, "ORD-1")
	assert.Equal(t, domain.StatusPending, got.Status)

	updated, err := r.Update(ctx, "ORD-1", func(o *domain.Order) error {
		o.AttachPayment("pay-1", time.Now())
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, updated.PaymentID)

	_, err = r.Update(ctx, "ORD-9", func(*domain.Order) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepositoryUpdateSerializes(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()
	require.NoError(t, r.Insert(ctx, newOrder(t, "ORD-1")))

	var wg sync.WaitGroup
	for n := 0; n < 100; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Update(ctx, "ORD-1", func(o *domain.Order) error {
				o.Items[0].Quantity++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := r.FindByID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, 101, got.Items[0].Quantity)
}
