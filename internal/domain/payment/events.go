package payment

import "time"

type ProcessedEvent struct {
	PaymentID      string    `json:"paymentId"`
	OrderID        string    `json:"orderId"`
	Amount         int64     `json:"amount"`
	TransactionRef string    `json:"transactionRef"`
	OccurredAt     time.Time `json:"occurredAt"`
}

func (ProcessedEvent) EventName() string      { return "payment.processed" }
func (e ProcessedEvent) EventKey() string     { return e.OrderID }
func (e ProcessedEvent) EventTime() time.Time { return e.OccurredAt }

func NewProcessedEvent(p *Payment) ProcessedEvent {
	return ProcessedEvent{
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		TransactionRef: p.TransactionRef,
		OccurredAt:     p.UpdatedAt,
	}
}

type RefundedEvent struct {
	PaymentID  string    `json:"paymentId"`
	OrderID    string    `json:"orderId"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (RefundedEvent) EventName() string      { return "payment.refunded" }
func (e RefundedEvent) EventKey() string     { return e.OrderID }
func (e RefundedEvent) EventTime() time.Time { return e.OccurredAt }

func NewRefundedEvent(p *Payment) RefundedEvent {
	return RefundedEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		Amount:     p.Amount,
		OccurredAt: p.UpdatedAt,
	}
}
