package httppresentation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apppayment "github.com/Zhima-Mochi/minishop-orders/internal/application/payment"
	dompayment "github.com/Zhima-Mochi/minishop-orders/internal/domain/payment"
)

type processPaymentRequest struct {
	Method string `json:"method"`
}

type paymentResponse struct {
	ID             string            `json:"id"`
	OrderID        string            `json:"orderId"`
	Method         string            `json:"method"`
	Amount         int64             `json:"amount"`
	Status         dompayment.Status `json:"status"`
	TransactionRef string            `json:"transactionRef,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func toPaymentResponse(p *dompayment.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Method:         p.Method,
		Amount:         p.Amount,
		Status:         p.Status,
		TransactionRef: p.TransactionRef,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type paymentHandlers struct {
	svc *apppayment.Service
}

func (h *paymentHandlers) process(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.Process(r.Context(), actorOf(r), chi.URLParam(r, "orderId"), req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toPaymentResponse(p))
}

func (h *paymentHandlers) refund(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Refund(r.Context(), actorOf(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toPaymentResponse(p))
}

func (h *paymentHandlers) status(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.StatusOf(r.Context(), actorOf(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toPaymentResponse(p))
}
