package order

import "context"

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// List returns every order in insertion order.
	List(ctx context.Context) ([]*Order, error)
	// Update runs fn on a copy of the order while holding the order's lock and
	// stores the copy only if fn returns nil.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
}
