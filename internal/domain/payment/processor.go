package payment

import "context"

// Processor is the payment gateway. It returns the gateway's transaction
// reference; a refused charge wraps ErrDeclined.
type Processor interface {
	Charge(ctx context.Context, orderID, method string, amount int64) (string, error)
}
