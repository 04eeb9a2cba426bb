package order

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"

	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	domain "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	domuser "github.com/Zhima-Mochi/minishop-orders/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/pagination"
)

const defaultSortField = "createdAt"

// ListQuery filters, searches, sorts and pages orders. Nil pointers mean no
// bound.
type ListQuery struct {
	Status      *domain.Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	MinTotal    *int64
	MaxTotal    *int64
	Search      string
	SortBy      string
	Desc        *bool
	// UserID narrows an elevated caller's view to one customer.
	UserID string
	Page   pagination.Params
}

type ListResult struct {
	Items []*domain.Order
	Meta  pagination.Meta
}

// List returns one page of the orders visible to actor. Customers only ever
// see their own orders.
func (s *Service) List(ctx context.Context, actor identity.Actor, q ListQuery) (_ *ListResult, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseList, "ListOrders",
		attribute.String("query.sort_by", q.SortBy),
		attribute.Bool("query.search", q.Search != ""),
	)
	defer func() { call.End(err) }()

	less, err := sorter(q.SortBy, q.Desc)
	if err != nil {
		return nil, err
	}

	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	owner := ""
	if !actor.Elevated() {
		owner = actor.ID
	} else if q.UserID != "" {
		owner = q.UserID
	}

	match := s.searcher(ctx, actor, q.Search)
	filtered := make([]*domain.Order, 0, len(all))
	for _, o := range all {
		if owner != "" && o.UserID != owner {
			continue
		}
		if !q.matches(o) || !match(o) {
			continue
		}
		filtered = append(filtered, o)
	}

	sort.SliceStable(filtered, func(i, j int) bool { return less(filtered[i], filtered[j]) })

	page := q.Page
	if page.Limit <= 0 {
		page = pagination.New(page.Page, pagination.DefaultLimit)
	}
	start, end := page.Window(len(filtered))
	call.Note(observability.F("total", len(filtered)), observability.F("page", page.Page))

	return &ListResult{
		Items: filtered[start:end],
		Meta:  page.MetaFor(len(filtered)),
	}, nil
}

func (q ListQuery) matches(o *domain.Order) bool {
	if q.Status != nil && o.Status != *q.Status {
		return false
	}
	if q.CreatedFrom != nil && o.CreatedAt.Before(*q.CreatedFrom) {
		return false
	}
	if q.CreatedTo != nil && o.CreatedAt.After(*q.CreatedTo) {
		return false
	}
	if q.MinTotal != nil && o.Totals.GrandTotal < *q.MinTotal {
		return false
	}
	if q.MaxTotal != nil && o.Totals.GrandTotal > *q.MaxTotal {
		return false
	}
	return true
}

// searcher matches the order id for everyone and, for elevated callers, the
// owner's name or email. Matching is a case-folded substring test.
func (s *Service) searcher(ctx context.Context, actor identity.Actor, term string) func(*domain.Order) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return func(*domain.Order) bool { return true }
	}
	fold := cases.Fold()
	needle := fold.String(term)
	contains := func(haystack string) bool {
		return haystack != "" && strings.Contains(fold.String(haystack), needle)
	}

	owners := make(map[string]*domuser.User)
	ownerOf := func(id string) *domuser.User {
		if u, ok := owners[id]; ok {
			return u
		}
		var u *domuser.User
		if s.users != nil {
			u, _ = s.users.FindByID(ctx, id)
		}
		owners[id] = u
		return u
	}

	return func(o *domain.Order) bool {
		if contains(o.ID) {
			return true
		}
		if !actor.Elevated() {
			return false
		}
		u := ownerOf(o.UserID)
		return u != nil && (contains(u.Name) || contains(u.Email))
	}
}

// sortKey extracts a comparable value. A nil key is a missing value.
type sortKey func(o *domain.Order) any

var sortKeys = map[string]sortKey{
	"id":         func(o *domain.Order) any { return o.ID },
	"userId":     func(o *domain.Order) any { return o.UserID },
	"status":     func(o *domain.Order) any { return string(o.Status) },
	"createdAt":  func(o *domain.Order) any { return o.CreatedAt },
	"updatedAt":  func(o *domain.Order) any { return o.UpdatedAt },
	"subtotal":   func(o *domain.Order) any { return o.Totals.Subtotal },
	"tax":        func(o *domain.Order) any { return o.Totals.Tax },
	"discount":   func(o *domain.Order) any { return o.Totals.Discount },
	"grandTotal": func(o *domain.Order) any { return o.Totals.GrandTotal },
	"total":      func(o *domain.Order) any { return o.Totals.GrandTotal },
	"paymentId": func(o *domain.Order) any {
		if o.PaymentID == nil {
			return nil
		}
		return *o.PaymentID
	},
}

// SortFields lists the accepted sort keys.
func SortFields() []string {
	out := make([]string, 0, len(sortKeys))
	for k := range sortKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// sorter builds the ordering for field. Missing values compare greater than
// any present value, so they land last ascending and first descending.
func sorter(field string, desc *bool) (func(a, b *domain.Order) bool, error) {
	if field == "" {
		field = defaultSortField
		if desc == nil {
			d := true
			desc = &d
		}
	}
	key, ok := sortKeys[field]
	if !ok {
		return nil, apperr.Validation("unknown sort field %q", field)
	}
	descending := desc != nil && *desc

	return func(a, b *domain.Order) bool {
		c := compareKeys(key(a), key(b))
		if descending {
			return c > 0
		}
		return c < 0
	}, nil
}

func compareKeys(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		return av.Compare(b.(time.Time))
	default:
		return 0
	}
}

// Summary aggregates every order in the store.
type Summary struct {
	TotalOrders  int                   `json:"totalOrders"`
	TotalRevenue int64                 `json:"totalRevenue"`
	ByStatus     map[domain.Status]int `json:"byStatus"`
}

func (s *Service) Summary(ctx context.Context) (_ *Summary, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseSummary, "OrderSummary")
	defer func() { call.End(err) }()

	all, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	sum := &Summary{ByStatus: make(map[domain.Status]int)}
	for _, o := range all {
		sum.TotalOrders++
		sum.TotalRevenue += o.Totals.GrandTotal
		sum.ByStatus[o.Status]++
	}
	call.Note(observability.F("total_orders", sum.TotalOrders))
	return sum, nil
}

// Customer is the identity snapshot printed on an invoice.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Invoice struct {
	InvoiceID       string            `json:"invoiceId"`
	OrderID         string            `json:"orderId"`
	Customer        Customer          `json:"customer"`
	Items           []domain.LineItem `json:"items"`
	Totals          domain.Totals     `json:"totals"`
	ShippingAddress domain.Address    `json:"shippingAddress"`
	Status          domain.Status     `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// Invoice projects an order into a read-only invoice.
func (s *Service) Invoice(ctx context.Context, actor identity.Actor, orderID string) (_ *Invoice, err error) {
	ctx, call := s.inst.Begin(ctx, useCaseInvoice, "OrderInvoice", attribute.String("order.id", orderID))
	defer func() { call.End(err) }()

	o, err := s.load(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	customer := Customer{ID: o.UserID}
	if s.users != nil {
		if u, uerr := s.users.FindByID(ctx, o.UserID); uerr == nil {
			customer.Name, customer.Email = u.Name, u.Email
		}
	}

	return &Invoice{
		InvoiceID:       "INV-" + o.ID,
		OrderID:         o.ID,
		Customer:        customer,
		Items:           o.Items,
		Totals:          o.Totals,
		ShippingAddress: o.ShippingAddress,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt,
	}, nil
}
