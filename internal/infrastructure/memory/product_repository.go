package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/product"
)

// ProductRepository keeps the catalog in memory. Stock mutations hold the
// per-product lock across check and decrement.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	locks    *keyedMutex
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
		locks:    newKeyedMutex(),
	}
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return apperr.Validation("product id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return apperr.Validation("product %s already exists", p.ID)
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx
	p := r.load(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return p.Clone(), nil
}

func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock int) error {
	_ = ctx
	if stock < 0 {
		return apperr.Validation("product %s: stock must not be negative", id)
	}

	unlock := r.locks.Lock(id)
	defer unlock()

	p := r.load(id)
	if p == nil {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	next := p.Clone()
	next.Stock = stock
	r.store(next)
	return nil
}

func (r *ProductRepository) Reserve(ctx context.Context, lines []domain.StockLine) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidQuantity, l.ProductID)
		}
		ids = append(ids, l.ProductID)
	}

	unlock := r.locks.LockAll(ids)
	defer unlock()

	// Check the whole batch before touching any counter. Repeated ids are
	// checked against their running total.
	working := make(map[string]*domain.Product, len(lines))
	demand := make(map[string]int, len(lines))
	for _, l := range lines {
		p, ok := working[l.ProductID]
		if !ok {
			p = r.load(l.ProductID)
			if !p.Orderable() {
				return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, l.ProductID)
			}
			p = p.Clone()
			working[l.ProductID] = p
		}
		demand[l.ProductID] += l.Quantity
		if demand[l.ProductID] > p.Stock {
			return nil, fmt.Errorf("%w: %s has %d, requested %d",
				domain.ErrInsufficientStock, p.Name, p.Stock, demand[l.ProductID])
		}
	}

	for id, p := range working {
		if err := p.Deduct(demand[id]); err != nil {
			return nil, err
		}
	}
	for _, p := range working {
		r.store(p)
	}

	out := make([]*domain.Product, 0, len(lines))
	for _, l := range lines {
		out = append(out, working[l.ProductID].Clone())
	}
	return out, nil
}

func (r *ProductRepository) Release(ctx context.Context, lines []domain.StockLine) error {
	_ = ctx
	if len(lines) == 0 {
		return nil
	}

	ids := make([]string, 0, len(lines))
	back := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		ids = append(ids, l.ProductID)
		back[l.ProductID] += l.Quantity
	}

	unlock := r.locks.LockAll(ids)
	defer unlock()

	for id, qty := range back {
		p := r.load(id)
		if p == nil {
			continue
		}
		next := p.Clone()
		if err := next.Restock(qty); err != nil {
			return err
		}
		r.store(next)
	}
	return nil
}

func (r *ProductRepository) load(id string) *domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.products[id]
}

func (r *ProductRepository) store(p *domain.Product) {
	r.mu.Lock()
	r.products[p.ID] = p
	r.mu.Unlock()
}
