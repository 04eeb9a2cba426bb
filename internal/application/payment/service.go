package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-orders/internal/application"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

const (
	paymentService = "payment-service"
	gatewayPeer    = "payment-gateway"

	useCaseProcess      = "payment.process"
	useCaseRefund       = "payment.refund"
	useCaseStatus       = "payment.status"
	useCaseRefundIfPaid = "payment.refund_if_paid"
)

// Deps bundles collaborators required to construct the payment service.
type Deps struct {
	Orders      domorder.Repository
	Payments    domain.Repository
	Processor   domain.Processor
	Events      domoutbox.Publisher
	Telemetry   observability.Observability
	Clock       func() time.Time
	IDGenerator func() string
}

// Service settles payments against orders. Every mutation runs inside the
// order's Update so one order never has two charges in flight.
type Service struct {
	orders    domorder.Repository
	payments  domain.Repository
	processor domain.Processor
	events    domoutbox.Publisher
	machine   domorder.Machine
	inst      *application.Instrument
	clock     func() time.Time
	newID     func() string
}

func NewService(deps Deps) (*Service, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment repository is required")
	}
	if deps.Processor == nil {
		return nil, errors.New("payment service: processor is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}

	return &Service{
		orders:    deps.Orders,
		payments:  deps.Payments,
		processor: deps.Processor,
		events:    deps.Events,
		machine:   domorder.NewMachine(),
		inst:      application.NewInstrument(deps.Telemetry, paymentService),
		clock:     func() time.Time { return clock().UTC() },
		newID:     idGen,
	}, nil
}

// Process charges the order's grand total. A failed or refunded earlier
// attempt is overwritten in place; a successful one is never charged again.
// Pending orders are confirmed.
func (s *Service) Process(ctx context.Context, actor identity.Actor, orderID, method string) (_ *domain.Payment, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseProcess, "ProcessPayment", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	var (
		settled *domain.Payment
		from    domorder.Status
	)
	updated, err := s.orders.Update(ctx, orderID, func(o *domorder.Order) error {
		if err := actor.Authorize(o.UserID); err != nil {
			return err
		}
		if o.Totals.GrandTotal <= 0 {
			return domain.ErrInvalidAmount
		}
		method := strings.TrimSpace(method)
		if method == "" {
			return domain.ErrMethodRequired
		}

		p, err := s.current(ctx, o.ID)
		if err != nil {
			return err
		}
		if p.Status == domain.StatusSuccess {
			return domain.ErrAlreadyPaid
		}

		var ref string
		err = s.inst.External(ctx, gatewayPeer, "charge", func(ctx context.Context) error {
			var cerr error
			ref, cerr = s.processor.Charge(ctx, o.ID, method, o.Totals.GrandTotal)
			return cerr
		})
		now := s.clock()
		if err != nil {
			p.Method, p.Amount, p.Status, p.UpdatedAt = method, o.Totals.GrandTotal, domain.StatusFailed, now
			if serr := s.payments.Save(ctx, p); serr != nil {
				call.Log.Error("payment_save_failed", observability.Err(serr))
			}
			return fmt.Errorf("payment: charge: %w", err)
		}

		if err := p.Settle(method, o.Totals.GrandTotal, ref, now); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, p); err != nil {
			return fmt.Errorf("payment: save: %w", err)
		}

		from = o.Status
		o.AttachPayment(p.ID, now)
		if o.Status == domorder.StatusPending {
			if err := o.TransitionTo(s.machine, domorder.StatusConfirmed, now); err != nil {
				return err
			}
		}
		settled = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	call.Note(
		observability.F("payment_id", settled.ID),
		observability.F("amount", settled.Amount),
		observability.F("order_status", updated.Status),
	)
	events := []domoutbox.Event{domain.NewProcessedEvent(settled)}
	if from != updated.Status {
		events = append(events, domorder.NewStatusChangedEvent(updated, from))
	}
	s.inst.Publish(ctx, s.events, events...)
	return settled, nil
}

// current returns the order's payment record, or a fresh pending one.
func (s *Service) current(ctx context.Context, orderID string) (*domain.Payment, error) {
	p, err := s.payments.FindByOrderID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		now := s.clock()
		return &domain.Payment{
			ID:        s.newID(),
			OrderID:   orderID,
			Status:    domain.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}
	return p, err
}

// Refund reverses a successful payment. The order status is not touched.
func (s *Service) Refund(ctx context.Context, actor identity.Actor, orderID string) (_ *domain.Payment, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseRefund, "RefundPayment", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	var refunded *domain.Payment
	_, err = s.orders.Update(ctx, orderID, func(o *domorder.Order) error {
		if err := actor.Authorize(o.UserID); err != nil {
			return err
		}
		p, err := s.payments.FindByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := p.Refund(s.clock()); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, p); err != nil {
			return fmt.Errorf("payment: save: %w", err)
		}
		refunded = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	call.Note(observability.F("payment_id", refunded.ID))
	s.inst.Publish(ctx, s.events, domain.NewRefundedEvent(refunded))
	return refunded, nil
}

// StatusOf returns the payment of an order the actor may see.
func (s *Service) StatusOf(ctx context.Context, actor identity.Actor, orderID string) (_ *domain.Payment, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseStatus, "PaymentStatus", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(o.UserID); err != nil {
		return nil, err
	}
	return s.payments.FindByOrderID(ctx, orderID)
}

// RefundIfPaid flips a successful payment to refunded and returns the
// payment as it now stands, or nil when the order has none. It never fails;
// store errors are logged. The caller must already hold the order.
func (s *Service) RefundIfPaid(ctx context.Context, orderID string) *domain.Payment {
	var err error
	ctx, call := s.inst.Begin(ctx, useCaseRefundIfPaid, "RefundIfPaid", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	p, err := s.payments.FindByOrderID(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
		call.Status("NO_PAYMENT")
		return nil
	}
	if err != nil {
		call.Log.Warn("refund_lookup_failed", observability.Err(err))
		return nil
	}
	if p.Status != domain.StatusSuccess {
		call.Status("NOT_REFUNDABLE")
		call.Note(observability.F("payment_status", p.Status))
		return p
	}

	refunded := p.Clone()
	if err = refunded.Refund(s.clock()); err == nil {
		err = s.payments.Save(ctx, refunded)
	}
	if err != nil {
		call.Log.Warn("refund_failed", observability.Err(err))
		return p
	}

	s.inst.Publish(ctx, s.events, domain.NewRefundedEvent(refunded))
	return refunded
}
