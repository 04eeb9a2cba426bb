package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-orders/internal/application"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	dompayment "github.com/Zhima-Mochi/minishop-orders/internal/domain/payment"
	domproduct "github.com/Zhima-Mochi/minishop-orders/internal/domain/product"
	domuser "github.com/Zhima-Mochi/minishop-orders/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

const (
	orderService = "order-service"
	idPrefix     = "ORD-"

	useCasePlace        = "order.place"
	useCasePlaceBulk    = "order.place_bulk"
	useCaseGet          = "order.get"
	useCaseUpdateStatus = "order.update_status"
	useCaseCancel       = "order.cancel"
	useCaseList         = "order.list"
	useCaseSummary      = "order.summary"
	useCaseInvoice      = "order.invoice"
)

// Refunder reverses a successful payment while the caller holds the order.
type Refunder interface {
	RefundIfPaid(ctx context.Context, orderID string) *dompayment.Payment
}

// Deps bundles collaborators required to construct the order service.
type Deps struct {
	Orders      domain.Repository
	Products    domproduct.Repository
	Users       domuser.Repository
	Payments    Refunder
	Events      domoutbox.Publisher
	Telemetry   observability.Observability
	Clock       func() time.Time
	IDGenerator func() string
}

type Service struct {
	orders   domain.Repository
	products domproduct.Repository
	users    domuser.Repository
	payments Refunder
	events   domoutbox.Publisher
	machine  domain.Machine
	inst     *application.Instrument
	clock    func() time.Time
	newID    func() string
}

func NewService(deps Deps) (*Service, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return idPrefix + ulid.Make().String() }
	}

	return &Service{
		orders:   deps.Orders,
		products: deps.Products,
		users:    deps.Users,
		payments: deps.Payments,
		events:   deps.Events,
		machine:  domain.NewMachine(),
		inst:     application.NewInstrument(deps.Telemetry, orderService),
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
	}, nil
}

// PlaceOrderInput is a checkout request. The actor becomes the owner.
type PlaceOrderInput struct {
	Actor           identity.Actor
	Items           []ItemRequest
	ShippingAddress domain.Address
	PaymentMethod   string
}

// Place prices and stores a new pending order. Either the whole batch of
// stock is reserved and the order stored, or nothing changes.
func (s *Service) Place(ctx context.Context, in PlaceOrderInput) (_ *domain.Order, err error) {
	ctx, call := s.inst.Begin(ctx, useCasePlace, "PlaceOrder",
		attribute.String("order.user_id", in.Actor.ID),
		attribute.Int("order.item_count", len(in.Items)),
	)
	defer func() { call.End(err) }()

	o, events, err := s.place(ctx, in)
	if err != nil {
		return nil, err
	}

	call.Note(observability.F("order_id", o.ID), observability.F("grand_total", o.Totals.GrandTotal))
	call.SetAttributes(attribute.String("order.id", o.ID))
	s.inst.Publish(ctx, s.events, events...)
	return o, nil
}

func (s *Service) place(ctx context.Context, in PlaceOrderInput) (*domain.Order, []domoutbox.Event, error) {
	if strings.TrimSpace(in.Actor.ID) == "" {
		return nil, nil, fmt.Errorf("order: %w: caller identity is required", apperr.ErrUnauthorized)
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, nil, domain.ErrNoPaymentMethod
	}
	if err := validateItems(in.Items); err != nil {
		return nil, nil, err
	}

	items, levels, err := s.reserve(ctx, in.Items)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	o, err := domain.New(s.newID(), in.Actor.ID, items, ComputeTotals(items), in.ShippingAddress, strings.TrimSpace(in.PaymentMethod), now)
	if err == nil {
		err = s.orders.Insert(ctx, o)
	}
	if err != nil {
		if relErr := s.Release(context.WithoutCancel(ctx), items); relErr != nil {
			s.inst.Logger(ctx).Error("reservation_release_failed",
				observability.Err(relErr),
			)
		}
		return nil, nil, fmt.Errorf("order: store: %w", err)
	}

	return o, []domoutbox.Event{
		domain.NewCreatedEvent(o),
		domproduct.NewStockReservedEvent(o.ID, levels, now),
	}, nil
}

// PlaceBulk places orders one after another for the same actor and stops at
// the first failure. Orders placed before the failure stay committed and are
// returned with the error.
func (s *Service) PlaceBulk(ctx context.Context, actor identity.Actor, inputs []PlaceOrderInput) (_ []*domain.Order, err error) {
	ctx, call := s.inst.Begin(ctx, useCasePlaceBulk, "PlaceOrdersBulk",
		attribute.Int("order.batch_size", len(inputs)),
	)
	defer func() { call.End(err) }()

	if len(inputs) == 0 {
		return nil, apperr.Validation("orders payload must be a non-empty array")
	}

	created := make([]*domain.Order, 0, len(inputs))
	for i, in := range inputs {
		in.Actor = actor
		o, events, err := s.place(ctx, in)
		if err != nil {
			call.Note(observability.F("created", len(created)), observability.F("failed_index", i))
			return created, fmt.Errorf("orders[%d]: %w", i, err)
		}
		s.inst.Publish(ctx, s.events, events...)
		created = append(created, o)
	}
	call.Note(observability.F("created", len(created)))
	return created, nil
}

// Get returns an order the actor may see.
func (s *Service) Get(ctx context.Context, actor identity.Actor, orderID string) (_ *domain.Order, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseGet, "GetOrder", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	return s.load(ctx, actor, orderID)
}

func (s *Service) load(ctx context.Context, actor identity.Actor, orderID string) (*domain.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(o.UserID); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus moves an order along the lifecycle graph. Only status and
// UpdatedAt change.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next domain.Status) (_ *domain.Order, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", orderID),
		attribute.String("order.next_status", string(next)),
	)
	defer func() { call.End(err) }()

	var from domain.Status
	updated, err := s.orders.Update(ctx, orderID, func(o *domain.Order) error {
		from = o.Status
		return o.TransitionTo(s.machine, next, s.clock())
	})
	if err != nil {
		return nil, err
	}

	call.Note(observability.F("from", from), observability.F("to", updated.Status))
	s.inst.Publish(ctx, s.events, domain.NewStatusChangedEvent(updated, from))
	return updated, nil
}

// Cancel releases the order's stock, refunds a successful payment and marks
// the order cancelled. Customers may only cancel their own orders.
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, orderID string) (_ *domain.Order, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseCancel, "CancelOrder", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	var (
		from     domain.Status
		refunded bool
	)
	updated, err := s.orders.Update(ctx, orderID, func(o *domain.Order) error {
		if err := actor.Authorize(o.UserID); err != nil {
			return err
		}
		if !s.machine.Cancellable(o.Status) {
			return apperr.Validation("order %s cannot be cancelled in status %s", o.ID, o.Status)
		}
		from = o.Status
		if err := o.TransitionTo(s.machine, domain.StatusCancelled, s.clock()); err != nil {
			return err
		}

		// Compensations run last; an error here discards the transition.
		if err := s.Release(ctx, o.Items); err != nil {
			return fmt.Errorf("order: release stock: %w", err)
		}
		if s.payments != nil {
			if p := s.payments.RefundIfPaid(ctx, o.ID); p != nil {
				refunded = p.Status == dompayment.StatusRefunded
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	call.Note(observability.F("from", from), observability.F("refunded", refunded))
	lines := make([]domproduct.StockLine, 0, len(updated.Items))
	for _, it := range updated.Items {
		lines = append(lines, domproduct.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	s.inst.Publish(ctx, s.events,
		domain.NewCancelledEvent(updated, from, refunded),
		domproduct.NewStockReleasedEvent(updated.ID, lines, updated.UpdatedAt),
	)
	return updated, nil
}
