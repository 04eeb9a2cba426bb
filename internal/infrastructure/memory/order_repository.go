package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
)

// OrderRepository keeps orders in insertion order. Update serializes
// read-modify-write per order id.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	seq    []string
	locks  *keyedMutex
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		locks:  newKeyedMutex(),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrConflict, o.ID)
	}
	r.orders[o.ID] = o.Clone()
	r.seq = append(r.seq, o.ID)
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.seq))
	for _, id := range r.seq {
		out = append(out, r.orders[id].Clone())
	}
	return out, nil
}

func (r *OrderRepository) Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error) {
	unlock := r.locks.Lock(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	current, ok := r.orders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = id

	r.mu.Lock()
	r.orders[id] = next
	r.mu.Unlock()

	return next.Clone(), nil
}
