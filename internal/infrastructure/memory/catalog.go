package memory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	domproduct "github.com/Zhima-Mochi/minishop-orders/internal/domain/product"
	domuser "github.com/Zhima-Mochi/minishop-orders/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/config"
)

// LoadCatalog inserts the seeded products and users. It stops at the first
// invalid or duplicate entry.
func LoadCatalog(ctx context.Context, seed config.Seed, products domproduct.Repository, users domuser.Repository) error {
	for i, sp := range seed.Products {
		p, err := domproduct.New(sp.ID, sp.Name, sp.Description, sp.Price, sp.Stock)
		if err != nil {
			return fmt.Errorf("seed products[%d]: %w", i, err)
		}
		p.Active = sp.IsActive()
		if err := products.Insert(ctx, p); err != nil {
			return fmt.Errorf("seed products[%d]: %w", i, err)
		}
	}
	for i, su := range seed.Users {
		role, err := identity.ParseRole(su.Role)
		if err != nil {
			return fmt.Errorf("seed users[%d]: %w", i, err)
		}
		u := &domuser.User{ID: su.ID, Name: su.Name, Email: su.Email, Role: role}
		if err := users.Insert(ctx, u); err != nil {
			return fmt.Errorf("seed users[%d]: %w", i, err)
		}
	}
	return nil
}
