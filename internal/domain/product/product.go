package product

import (
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
)

var (
	ErrNotFound          = fmt.Errorf("product: %w", apperr.ErrNotFound)
	ErrInvalidQuantity   = fmt.Errorf("product: %w: quantity must be greater than zero", apperr.ErrValidation)
	ErrInsufficientStock = fmt.Errorf("product: %w", apperr.ErrInsufficientStock)
)

// Product is a catalog entry with its stock counter. Prices are minor units.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Stock       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, name, description string, price int64, stock int) (*Product, error) {
	if id == "" {
		return nil, apperr.Validation("product id is required")
	}
	if price <= 0 {
		return nil, apperr.Validation("product %s: price must be positive", id)
	}
	if stock < 0 {
		return nil, apperr.Validation("product %s: stock must not be negative", id)
	}
	now := time.Now().UTC()
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Orderable reports whether the product can appear on a new order.
func (p *Product) Orderable() bool {
	return p != nil && p.Active
}

// Deduct removes quantity from stock, refusing to go below zero.
func (p *Product) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, p.Name, p.Stock, quantity)
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

// Restock returns quantity to stock.
func (p *Product) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += quantity
	p.touch()
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
