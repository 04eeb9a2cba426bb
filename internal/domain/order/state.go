package order

import (
	"fmt"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
)

var (
	ErrInvalidTransition = fmt.Errorf("order: %w: invalid status transition", apperr.ErrValidation)
	ErrUnknownStatus     = fmt.Errorf("order: %w: unknown status", apperr.ErrValidation)
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) String() string { return string(s) }

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Machine is the order lifecycle graph. The zero value is not usable; build
// one with NewMachine.
type Machine struct {
	edges map[Status][]Status
}

func NewMachine() Machine {
	return Machine{edges: map[Status][]Status{
		StatusPending:    {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusProcessing, StatusCancelled},
		StatusProcessing: {StatusShipped},
		StatusShipped:    {StatusDelivered},
		StatusDelivered:  nil,
		StatusCancelled:  nil,
	}}
}

// Transition returns nil when from -> to is an edge of the graph.
func (m Machine) Transition(from, to Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownStatus, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w %q", ErrUnknownStatus, to)
	}
	for _, next := range m.edges[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, from, to)
}

// Next lists the statuses reachable from s in one step.
func (m Machine) Next(s Status) []Status {
	return append([]Status(nil), m.edges[s]...)
}

func (m Machine) Terminal(s Status) bool {
	return s.Valid() && len(m.edges[s]) == 0
}

// Cancellable reports whether an order in s may still be cancelled.
func (m Machine) Cancellable(s Status) bool {
	return m.Transition(s, StatusCancelled) == nil
}
