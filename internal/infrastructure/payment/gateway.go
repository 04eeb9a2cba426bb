// Package payment holds the payment gateway adapters.
package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	dompayment "github.com/Zhima-Mochi/minishop-orders/internal/domain/payment"
)

// SimulatedGateway approves every charge except for methods listed as
// declined. Transaction references look like TXN-<ULID>.
type SimulatedGateway struct {
	mu       sync.RWMutex
	declined map[string]struct{}
	newRef   func() string
}

func NewSimulatedGateway(declinedMethods ...string) *SimulatedGateway {
	g := &SimulatedGateway{
		declined: make(map[string]struct{}, len(declinedMethods)),
		newRef:   func() string { return "TXN-" + ulid.Make().String() },
	}
	for _, m := range declinedMethods {
		g.Decline(m)
	}
	return g
}

// Decline makes every later charge with method fail.
func (g *SimulatedGateway) Decline(method string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declined[normalize(method)] = struct{}{}
}

// Allow reverses Decline.
func (g *SimulatedGateway) Allow(method string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.declined, normalize(method))
}

func (g *SimulatedGateway) Charge(ctx context.Context, orderID, method string, amount int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount <= 0 {
		return "", fmt.Errorf("payment gateway: invalid amount %d for order %s", amount, orderID)
	}

	g.mu.RLock()
	_, declined := g.declined[normalize(method)]
	g.mu.RUnlock()
	if declined {
		return "", fmt.Errorf("%w: method %s", dompayment.ErrDeclined, method)
	}
	return g.newRef(), nil
}

func normalize(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
