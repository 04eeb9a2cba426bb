package order

import "time"

// CreatedEvent is emitted once an order and its reservation are committed.
type CreatedEvent struct {
	OrderID    string     `json:"orderId"`
	UserID     string     `json:"userId"`
	Items      []LineItem `json:"items"`
	GrandTotal int64      `json:"grandTotal"`
	OccurredAt time.Time  `json:"occurredAt"`
}

func (CreatedEvent) EventName() string      { return "order.created" }
func (e CreatedEvent) EventKey() string     { return e.OrderID }
func (e CreatedEvent) EventTime() time.Time { return e.OccurredAt }

func NewCreatedEvent(o *Order) CreatedEvent {
	return CreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      append([]LineItem(nil), o.Items...),
		GrandTotal: o.Totals.GrandTotal,
		OccurredAt: o.CreatedAt,
	}
}

type StatusChangedEvent struct {
	OrderID    string    `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (StatusChangedEvent) EventName() string      { return "order.status_changed" }
func (e StatusChangedEvent) EventKey() string     { return e.OrderID }
func (e StatusChangedEvent) EventTime() time.Time { return e.OccurredAt }

func NewStatusChangedEvent(o *Order, from Status) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		OccurredAt: o.UpdatedAt,
	}
}

// CancelledEvent carries whether a successful payment was refunded on the way.
type CancelledEvent struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	From       Status    `json:"from"`
	Refunded   bool      `json:"refunded"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (CancelledEvent) EventName() string      { return "order.cancelled" }
func (e CancelledEvent) EventKey() string     { return e.OrderID }
func (e CancelledEvent) EventTime() time.Time { return e.OccurredAt }

func NewCancelledEvent(o *Order, from Status, refunded bool) CancelledEvent {
	return CancelledEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		From:       from,
		Refunded:   refunded,
		OccurredAt: o.UpdatedAt,
	}
}
