// Package identity describes the authenticated caller handed to every core
// operation by the authentication layer.
package identity

import (
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
)

// Role is the closed set of caller roles.
type Role int

const (
	RoleCustomer Role = iota + 1
	RoleSeller
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleCustomer:
		return "customer"
	case RoleSeller:
		return "seller"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole converts the wire name of a role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer":
		return RoleCustomer, nil
	case "seller":
		return RoleSeller, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, apperr.Validation("unknown role %q", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Actor is the caller identity. The core trusts it as given.
type Actor struct {
	ID   string
	Role Role
}

// Elevated reports whether the actor acts on behalf of the shop rather than
// as a customer.
func (a Actor) Elevated() bool {
	switch a.Role {
	case RoleAdmin, RoleSeller:
		return true
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// CanAccess reports whether the actor may read or act on a resource owned by ownerID.
func (a Actor) CanAccess(ownerID string) bool {
	switch a.Role {
	case RoleAdmin, RoleSeller:
		return true
	case RoleCustomer:
		return a.ID != "" && a.ID == ownerID
	default:
		return false
	}
}

// Authorize returns apperr.ErrForbidden when the actor may not touch a
// resource owned by ownerID.
func (a Actor) Authorize(ownerID string) error {
	if !a.CanAccess(ownerID) {
		return apperr.Forbidden("actor %s may not access resources of %s", a.ID, ownerID)
	}
	return nil
}
