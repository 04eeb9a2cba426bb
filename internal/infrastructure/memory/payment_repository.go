package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/payment"
)

// PaymentRepository indexes payments by order id; an order has at most one.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[string]*domain.Payment)}
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	return p.Clone(), nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *domain.Payment) error {
	_ = ctx
	if p == nil || p.OrderID == "" {
		return fmt.Errorf("payment repository: order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.payments[p.OrderID]; ok && prev.ID != p.ID {
		return fmt.Errorf("payment repository: order %s already has payment %s", p.OrderID, prev.ID)
	}
	r.payments[p.OrderID] = p.Clone()
	return nil
}
