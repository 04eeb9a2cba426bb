package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
)

var (
	ErrNotFound        = fmt.Errorf("order: %w", apperr.ErrNotFound)
	ErrConflict        = fmt.Errorf("order: %w: id already exists", apperr.ErrInternal)
	ErrNoItems         = fmt.Errorf("order: %w: at least one item is required", apperr.ErrValidation)
	ErrInvalidQuantity = fmt.Errorf("order: %w: quantity must be greater than zero", apperr.ErrValidation)
	ErrInvalidAddress  = fmt.Errorf("order: %w: shipping address is incomplete", apperr.ErrValidation)
	ErrNoPaymentMethod = fmt.Errorf("order: %w: payment method is required", apperr.ErrValidation)
)

// LineItem is one product on an order. PriceAtPurchase is frozen when the
// order is placed.
type LineItem struct {
	ProductID       string `json:"productId"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase int64  `json:"priceAtPurchase"`
}

// Totals are integer minor units.
type Totals struct {
	Subtotal   int64 `json:"subtotal"`
	Tax        int64 `json:"tax"`
	Discount   int64 `json:"discount"`
	GrandTotal int64 `json:"grandTotal"`
}

type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Validate requires all four fields to be non-blank.
func (a Address) Validate() error {
	missing := make([]string, 0, 4)
	for _, f := range []struct{ name, value string }{
		{"line1", a.Line1},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	return nil
}

type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	Totals          Totals
	ShippingAddress Address
	PaymentMethod   string
	Status          Status
	PaymentID       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// New builds a pending order. Totals are computed by the caller from the
// frozen line prices.
func New(id, userID string, items []LineItem, totals Totals, addr Address, method string, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(method) == "" {
		return nil, ErrNoPaymentMethod
	}

	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           append([]LineItem(nil), items...),
		Totals:          totals,
		ShippingAddress: addr,
		PaymentMethod:   method,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// TransitionTo moves the order to next if m allows it.
func (o *Order) TransitionTo(m Machine, next Status, now time.Time) error {
	if err := m.Transition(o.Status, next); err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

func (o *Order) AttachPayment(paymentID string, now time.Time) {
	o.PaymentID = &paymentID
	o.UpdatedAt = now
}

// Clone returns a deep copy so stores never hand out shared state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	if o.PaymentID != nil {
		id := *o.PaymentID
		c.PaymentID = &id
	}
	return &c
}
