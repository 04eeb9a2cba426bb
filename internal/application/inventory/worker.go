package inventory

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-orders/internal/application"
	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	domproduct "github.com/Zhima-Mochi/minishop-orders/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
)

const (
	workerService   = "inventory-worker"
	useCaseLowStock = "inventory.worker.stock_reserved"
)

// Worker watches reservations and flags products that run low.
type Worker struct {
	subscriber domoutbox.Subscriber
	threshold  int
	inst       *application.Instrument
	lowStock   observability.Counter // stock_low_total{product_id}
}

func New(subscriber domoutbox.Subscriber, threshold int, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		threshold:  threshold,
		inst:       application.NewInstrument(tel, workerService),
		lowStock:   tel.Metrics().Counter(observability.MStockLow),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domproduct.StockReservedEvent{}.EventName(), w.HandleStockReserved)
}

// HandleStockReserved logs a stock_low warning for every line left at or
// below the threshold.
func (w *Worker) HandleStockReserved(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(domproduct.StockReservedEvent)
	if !ok {
		return nil
	}

	ctx, call := w.inst.Begin(ctx, useCaseLowStock, "StockReserved",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", evt.OrderID),
	)
	defer func() { call.End(err) }()

	low := 0
	seen := make(map[string]struct{}, len(evt.Lines))
	for _, l := range evt.Lines {
		if _, dup := seen[l.ProductID]; dup {
			continue
		}
		seen[l.ProductID] = struct{}{}
		if l.Remaining > w.threshold {
			continue
		}
		low++
		w.lowStock.Add(1, observability.L("product_id", l.ProductID))
		w.inst.Logger(ctx).Warn("stock_low",
			observability.F("product_id", l.ProductID),
			observability.F("remaining", l.Remaining),
			observability.F("threshold", w.threshold),
			observability.F("order_id", evt.OrderID),
		)
	}
	call.Note(observability.F("low_products", low))
	return nil
}
