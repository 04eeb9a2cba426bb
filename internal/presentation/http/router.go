// Package httppresentation exposes the order and payment use cases over a
// JSON HTTP API.
package httppresentation

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apporder "github.com/Zhima-Mochi/minishop-orders/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-orders/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/pagination"
)

const defaultRequestTimeout = 30 * time.Second

type Deps struct {
	Orders    *apporder.Service
	Payments  *apppayment.Service
	Telemetry observability.Observability
	JWTSecret []byte
	// Metrics serves /metrics when set.
	Metrics        http.Handler
	RequestTimeout time.Duration
	Pagination     pagination.Options
}

// NewRouter wires middleware and routes:
// RequestID → RealIP → Observability → Recoverer → Timeout → (Authenticate → RequireRole) → handler.
func NewRouter(deps Deps) (chi.Router, error) {
	if deps.Orders == nil || deps.Payments == nil {
		return nil, errors.New("http: order and payment services are required")
	}
	if len(deps.JWTSecret) == 0 {
		return nil, errors.New("http: jwt secret is required")
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	orders := &orderHandlers{svc: deps.Orders, page: deps.Pagination}
	payments := &paymentHandlers{svc: deps.Payments}
	staff := RequireRole(identity.RoleAdmin, identity.RoleSeller)
	admin := RequireRole(identity.RoleAdmin)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		Observability(deps.Telemetry),
		middleware.Recoverer,
		middleware.Timeout(timeout),
	)
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/health", health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(Authenticate(deps.JWTSecret))

		api.Route("/orders", func(o chi.Router) {
			o.Post("/", orders.place)
			o.Get("/", orders.list)
			o.With(staff).Post("/bulk", orders.placeBulk)
			o.With(admin).Get("/stats/summary", orders.summary)
			o.Get("/{id}", orders.get)
			o.Get("/{id}/invoice", orders.invoice)
			o.With(staff).Patch("/{id}/status", orders.updateStatus)
			o.Post("/{id}/cancel", orders.cancel)
		})

		api.Route("/payments/{orderId}", func(p chi.Router) {
			p.Post("/process", payments.process)
			p.With(admin).Post("/refund", payments.refund)
			p.Get("/status", payments.status)
		})
	})

	return r, nil
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
