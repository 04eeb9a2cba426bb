package payment

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/memory"
	infrapayment "github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/payment"
)

var (
	alice = identity.Actor{ID: "u1", Role: identity.RoleCustomer}
	bob   = identity.Actor{ID: "u2", Role: identity.RoleCustomer}
	admin = identity.Actor{ID: "a1", Role: identity.RoleAdmin}
)

type recorder struct {
	mu    sync.Mutex
	names []string
}

func (r *recorder) Publish(_ context.Context, e domoutbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, e.EventName())
	return nil
}

// countingProcessor wraps a processor and counts charges.
type countingProcessor struct {
	domain.Processor
	calls atomic.Int64
}

func (c *countingProcessor) Charge(ctx context.Context, orderID, method string, amount int64) (string, error) {
	c.calls.Add(1)
	return c.Processor.Charge(ctx, orderID, method, amount)
}

type fixture struct {
	svc     *Service
	orders  *memory.OrderRepository
	store   *memory.PaymentRepository
	gateway *infrapayment.SimulatedGateway
	charges *countingProcessor
	events  *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders:  memory.NewOrderRepository(),
		store:   memory.NewPaymentRepository(),
		gateway: infrapayment.NewSimulatedGateway("declined_card"),
		events:  &recorder{},
	}
	f.charges = &countingProcessor{Processor: f.gateway}

	var seq atomic.Int64
	svc, err := NewService(Deps{
		Orders:      f.orders,
		Payments:    f.store,
		Processor:   f.charges,
		Events:      f.events,
		IDGenerator: func() string { return fmt.Sprintf("pay-%d", seq.Add(1)) },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) addOrder(t *testing.T, id, userID string) *domorder.Order {
	t.Helper()
	o, err := domorder.New(id, userID,
		[]domorder.LineItem{{ProductID: "p1", Quantity: 2, PriceAtPurchase: 1000}},
		domorder.Totals{Subtotal: 2000, Tax: 360, GrandTotal: 2360},
		domorder.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		"card", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.orders.Insert(context.Background(), o))
	return o
}

func (f *fixture) order(t *testing.T, id string) *domorder.Order {
	t.Helper()
	o, err := f.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)
	_, err = NewService(Deps{Orders: memory.NewOrderRepository(), Payments: memory.NewPaymentRepository()})
	assert.Error(t, err)
}

func TestProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")

	p, err := f.svc.Process(ctx, alice, "ORD-1", " card ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, p.Status)
	assert.EqualValues(t, 2360, p.Amount)
	assert.Equal(t, "card", p.Method)
	assert.Regexp(t, `^TXN-`, p.TransactionRef)

	o := f.order(t, "ORD-1")
	assert.Equal(t, domorder.StatusConfirmed, o.Status)
	require.NotNil(t, o.PaymentID)
	assert.Equal(t, p.ID, *o.PaymentID)
	assert.Equal(t, []string{"payment.processed", "order.status_changed"}, f.events.names)

	_, err = f.svc.Process(ctx, alice, "ORD-1", "card")
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.EqualValues(t, 1, f.charges.calls.Load())

	stored, err := f.store.FindByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, stored.ID)
}

func TestProcessRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")

	_, err := f.svc.Process(ctx, bob, "ORD-1", "card")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Process(ctx, alice, "ORD-1", "  ")
	assert.ErrorIs(t, err, domain.ErrMethodRequired)

	_, err = f.svc.Process(ctx, alice, "ORD-404", "card")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	assert.Zero(t, f.charges.calls.Load())
	_, err = f.store.FindByOrderID(ctx, "ORD-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessDeclinedThenRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")

	_, err := f.svc.Process(ctx, alice, "ORD-1", "declined_card")
	require.ErrorIs(t, err, domain.ErrDeclined)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	failed, err := f.store.FindByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	o := f.order(t, "ORD-1")
	assert.Equal(t, domorder.StatusPending, o.Status)
	assert.Nil(t, o.PaymentID)

	p, err := f.svc.Process(ctx, alice, "ORD-1", "card")
	require.NoError(t, err)
	assert.Equal(t, failed.ID, p.ID)
	assert.Equal(t, failed.CreatedAt, p.CreatedAt)
	assert.Equal(t, domain.StatusSuccess, p.Status)
}

func TestProcessCancelledOrderKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")
	_, err := f.orders.Update(ctx, "ORD-1", func(o *domorder.Order) error {
		return o.TransitionTo(domorder.NewMachine(), domorder.StatusCancelled, time.Now())
	})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, alice, "ORD-1", "card")
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, f.order(t, "ORD-1").Status)
	assert.Equal(t, []string{"payment.processed"}, f.events.names)
}

func TestConcurrentProcessChargesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Process(ctx, alice, "ORD-1", "card"); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, succeeded.Load())
	assert.EqualValues(t, 1, f.charges.calls.Load())
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")

	_, err := f.svc.Refund(ctx, admin, "ORD-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	paid, err := f.svc.Process(ctx, alice, "ORD-1", "card")
	require.NoError(t, err)

	refunded, err := f.svc.Refund(ctx, admin, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, paid.ID, refunded.ID)
	assert.Equal(t, domain.StatusRefunded, refunded.Status)
	assert.Equal(t, domorder.StatusConfirmed, f.order(t, "ORD-1").Status)

	_, err = f.svc.Refund(ctx, admin, "ORD-1")
	assert.ErrorIs(t, err, domain.ErrNotRefundable)

	got, err := f.svc.StatusOf(ctx, alice, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, got.Status)

	_, err = f.svc.StatusOf(ctx, bob, "ORD-1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// A refunded payment can be charged again under the same identity.
	again, err := f.svc.Process(ctx, alice, "ORD-1", "card")
	require.NoError(t, err)
	assert.Equal(t, paid.ID, again.ID)
}

func TestRefundIfPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addOrder(t, "ORD-1", "u1")

	assert.Nil(t, f.svc.RefundIfPaid(ctx, "ORD-1"))

	_, err := f.svc.Process(ctx, alice, "ORD-1", "declined_card")
	require.Error(t, err)
	p := f.svc.RefundIfPaid(ctx, "ORD-1")
	require.NotNil(t, p)
	assert.Equal(t, domain.StatusFailed, p.Status)

	_, err = f.svc.Process(ctx, alice, "ORD-1", "card")
	require.NoError(t, err)
	p = f.svc.RefundIfPaid(ctx, "ORD-1")
	require.NotNil(t, p)
	assert.Equal(t, domain.StatusRefunded, p.Status)

	stored, err := f.store.FindByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, stored.Status)
	assert.Contains(t, f.events.names, "payment.refunded")
}
