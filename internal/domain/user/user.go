package user

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
)

var ErrNotFound = fmt.Errorf("user: %w", apperr.ErrNotFound)

// User is the minimal customer profile the order engine reads.
type User struct {
	ID    string
	Name  string
	Email string
	Role  identity.Role
}

type Repository interface {
	Insert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
}
