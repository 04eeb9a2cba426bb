package payment

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
)

var (
	ErrNotFound       = fmt.Errorf("payment: %w", apperr.ErrNotFound)
	ErrAlreadyPaid    = fmt.Errorf("payment: %w: order is already paid", apperr.ErrValidation)
	ErrNotRefundable  = fmt.Errorf("payment: %w: only successful payments can be refunded", apperr.ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("payment: %w: order total must be greater than zero", apperr.ErrValidation)
	ErrMethodRequired = fmt.Errorf("payment: %w: payment method is required", apperr.ErrValidation)
	ErrDeclined       = fmt.Errorf("payment: %w: charge declined", apperr.ErrValidation)
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// Payment is the single settlement record of an order.
type Payment struct {
	ID             string
	OrderID        string
	Method         string
	Amount         int64
	Status         Status
	TransactionRef string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Settle records a successful charge. Identity and CreatedAt are kept when an
// earlier failed or refunded attempt is overwritten.
func (p *Payment) Settle(method string, amount int64, txnRef string, now time.Time) error {
	if p.Status == StatusSuccess {
		return ErrAlreadyPaid
	}
	p.Method = method
	p.Amount = amount
	p.TransactionRef = txnRef
	p.Status = StatusSuccess
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Refund(now time.Time) error {
	if p.Status != StatusSuccess {
		return fmt.Errorf("%w (status %s)", ErrNotRefundable, p.Status)
	}
	p.Status = StatusRefunded
	p.UpdatedAt = now
	return nil
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
