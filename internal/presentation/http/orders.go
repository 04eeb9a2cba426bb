package httppresentation

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apporder "github.com/Zhima-Mochi/minishop-orders/internal/application/order"
	"github.com/Zhima-Mochi/minishop-orders/internal/domain/apperr"
	domorder "github.com/Zhima-Mochi/minishop-orders/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-orders/internal/pkg/pagination"
)

type itemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Items           []itemRequest    `json:"items"`
	ShippingAddress domorder.Address `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"`
}

func (req placeOrderRequest) input() apporder.PlaceOrderInput {
	items := make([]apporder.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = apporder.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return apporder.PlaceOrderInput{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
}

type bulkOrderRequest struct {
	Orders []placeOrderRequest `json:"orders"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Items           []domorder.LineItem `json:"items"`
	Totals          domorder.Totals     `json:"totals"`
	ShippingAddress domorder.Address    `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	Status          domorder.Status     `json:"status"`
	PaymentID       *string             `json:"paymentId"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           o.Items,
		Totals:          o.Totals,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Status:          o.Status,
		PaymentID:       o.PaymentID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrderResponses(orders []*domorder.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

type orderHandlers struct {
	svc  *apporder.Service
	page pagination.Options
}

func (h *orderHandlers) place(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in := req.input()
	in.Actor = actorOf(r)

	o, err := h.svc.Place(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toOrderResponse(o))
}

func (h *orderHandlers) placeBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	inputs := make([]apporder.PlaceOrderInput, len(req.Orders))
	for i, o := range req.Orders {
		inputs[i] = o.input()
	}

	created, err := h.svc.PlaceBulk(r.Context(), actorOf(r), inputs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toOrderResponses(created))
}

func (h *orderHandlers) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), h.page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.List(r.Context(), actorOf(r), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePage(w, toOrderResponses(res.Items), res.Meta)
}

func (h *orderHandlers) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, s)
}

func (h *orderHandlers) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrderResponse(o))
}

func (h *orderHandlers) invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.Invoice(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, inv)
}

func (h *orderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	next, err := domorder.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrderResponse(o))
}

func (h *orderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Cancel(r.Context(), actorOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrderResponse(o))
}

// parseListQuery reads status, dateFrom, dateTo, minTotal, maxTotal, search,
// sortBy, sortOrder, userId, page and limit. Malformed filters are rejected;
// malformed paging falls back to defaults.
func parseListQuery(v url.Values, opts pagination.Options) (apporder.ListQuery, error) {
	q := apporder.ListQuery{
		Search: strings.TrimSpace(v.Get("search")),
		SortBy: strings.TrimSpace(v.Get("sortBy")),
		UserID: strings.TrimSpace(v.Get("userId")),
		Page:   pagination.Parse(v, opts),
	}

	if raw := strings.TrimSpace(v.Get("status")); raw != "" {
		st, err := domorder.ParseStatus(raw)
		if err != nil {
			return q, err
		}
		q.Status = &st
	}

	var err error
	if q.CreatedFrom, err = timeParam(v, "dateFrom"); err != nil {
		return q, err
	}
	if q.CreatedTo, err = timeParam(v, "dateTo"); err != nil {
		return q, err
	}
	if q.MinTotal, err = intParam(v, "minTotal"); err != nil {
		return q, err
	}
	if q.MaxTotal, err = intParam(v, "maxTotal"); err != nil {
		return q, err
	}

	switch order := strings.ToLower(strings.TrimSpace(v.Get("sortOrder"))); order {
	case "":
	case "asc", "desc":
		desc := order == "desc"
		q.Desc = &desc
	default:
		return q, apperr.Validation("sortOrder must be asc or desc, got %q", order)
	}
	return q, nil
}

func timeParam(v url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation("%s must be an RFC 3339 timestamp or a date, got %q", key, raw)
}

func intParam(v url.Values, key string) (*int64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("%s must be an integer, got %q", key, raw)
	}
	return &n, nil
}
