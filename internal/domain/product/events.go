package product

import "time"

// StockLevel records the stock left on a product after a reservation.
type StockLevel struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Remaining int    `json:"remaining"`
}

// StockReservedEvent is emitted after a batch reservation for an order is committed.
type StockReservedEvent struct {
	OrderID    string       `json:"orderId"`
	Lines      []StockLevel `json:"lines"`
	OccurredAt time.Time    `json:"occurredAt"`
}

func (StockReservedEvent) EventName() string      { return "stock.reserved" }
func (e StockReservedEvent) EventKey() string     { return e.OrderID }
func (e StockReservedEvent) EventTime() time.Time { return e.OccurredAt }

func NewStockReservedEvent(orderID string, lines []StockLevel, at time.Time) StockReservedEvent {
	return StockReservedEvent{
		OrderID:    orderID,
		Lines:      lines,
		OccurredAt: at,
	}
}

// StockReleasedEvent is emitted when a cancelled order gives its stock back.
type StockReleasedEvent struct {
	OrderID    string      `json:"orderId"`
	Lines      []StockLine `json:"lines"`
	OccurredAt time.Time   `json:"occurredAt"`
}

func (StockReleasedEvent) EventName() string      { return "stock.released" }
func (e StockReleasedEvent) EventKey() string     { return e.OrderID }
func (e StockReleasedEvent) EventTime() time.Time { return e.OccurredAt }

func NewStockReleasedEvent(orderID string, lines []StockLine, at time.Time) StockReleasedEvent {
	return StockReleasedEvent{
		OrderID:    orderID,
		Lines:      lines,
		OccurredAt: at,
	}
}
