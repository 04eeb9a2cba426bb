package payment

import "context"

type Repository interface {
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	// Save stores p as the payment of p.OrderID, replacing any previous record.
	Save(ctx context.Context, p *Payment) error
}
