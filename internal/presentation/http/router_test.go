package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apporder "github.com/Zhima-Mochi/minishop-orders/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-orders/internal/application/payment"
	domproduct "github.com/Zhima-Mochi/minishop-orders/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/memory"
	infrapayment "github.com/Zhima-Mochi/minishop-orders/internal/infrastructure/payment"
)

var testSecret = []byte("test-secret")

type fixture struct {
	handler  http.Handler
	products *memory.ProductRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := memory.NewProductRepository()
	p, err := domproduct.New("p1", "Keyboard", "", 1000, 5)
	require.NoError(t, err)
	require.NoError(t, products.Insert(context.Background(), p))

	orders := memory.NewOrderRepository()
	payments, err := apppayment.NewService(apppayment.Deps{
		Orders:    orders,
		Payments:  memory.NewPaymentRepository(),
		Processor: infrapayment.NewSimulatedGateway("declined_card"),
	})
	require.NoError(t, err)
	orderSvc, err := apporder.NewService(apporder.Deps{
		Orders:   orders,
		Products: products,
		Users:    memory.NewUserRepository(),
		Payments: payments,
	})
	require.NoError(t, err)

	h, err := NewRouter(Deps{
		Orders:    orderSvc,
		Payments:  payments,
		JWTSecret: testSecret,
	})
	require.NoError(t, err)
	return &fixture{handler: h, products: products}
}

func token(t *testing.T, secret []byte, sub, role string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func bearer(t *testing.T, sub, role string) string {
	return "Bearer " + token(t, testSecret, sub, role, time.Now().Add(time.Hour))
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]int  `json:"meta"`
	Error   struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, auth string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func placeBody(qty int) map[string]any {
	return map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": qty}},
		"shippingAddress": map[string]string{
			"line1": "1 Main St", "city": "Springfield", "postalCode": "12345", "country": "US",
		},
		"paymentMethod": "card",
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, out.Success)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		auth string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"wrong secret", "Bearer " + token(t, []byte("other"), "u1", "customer", time.Now().Add(time.Hour))},
		{"expired", "Bearer " + token(t, testSecret, "u1", "customer", time.Now().Add(-time.Minute))},
		{"unknown role", "Bearer " + token(t, testSecret, "u1", "root", time.Now().Add(time.Hour))},
		{"no subject", "Bearer " + token(t, testSecret, "", "admin", time.Now().Add(time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := f.do(t, http.MethodGet, "/api/orders", tt.auth, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, out.Success)
			assert.Equal(t, "UNAUTHORIZED", out.Error.Code)
			assert.Equal(t, http.StatusUnauthorized, out.Error.StatusCode)
		})
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	alice := bearer(t, "u1", "customer")

	rec, out := f.do(t, http.MethodPost, "/api/orders", alice, placeBody(2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created orderResponse
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Equal(t, "u1", created.UserID)
	assert.EqualValues(t, 2000, created.Totals.Subtotal)
	assert.EqualValues(t, 360, created.Totals.Tax)
	assert.EqualValues(t, 2360, created.Totals.GrandTotal)
	assert.EqualValues(t, "pending", created.Status)
	assert.Nil(t, created.PaymentID)

	p, err := f.products.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	rec, out = f.do(t, http.MethodGet, "/api/orders/"+created.ID, bearer(t, "u2", "customer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", out.Error.Code)

	rec, out = f.do(t, http.MethodPost, "/api/payments/"+created.ID+"/process", alice, map[string]string{"method": "card"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid paymentResponse
	require.NoError(t, json.Unmarshal(out.Data, &paid))
	assert.EqualValues(t, "success", paid.Status)
	assert.EqualValues(t, 2360, paid.Amount)

	rec, out = f.do(t, http.MethodPost, "/api/payments/"+created.ID+"/process", alice, map[string]string{"method": "card"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)

	_, out = f.do(t, http.MethodGet, "/api/orders/"+created.ID, alice, nil)
	var got orderResponse
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.EqualValues(t, "confirmed", got.Status)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, paid.ID, *got.PaymentID)

	rec, out = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.EqualValues(t, "cancelled", got.Status)

	p, err = f.products.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	_, out = f.do(t, http.MethodGet, "/api/payments/"+created.ID+"/status", alice, nil)
	require.NoError(t, json.Unmarshal(out.Data, &paid))
	assert.EqualValues(t, "refunded", paid.Status)
}

func TestInsufficientStockOverHTTP(t *testing.T) {
	f := newFixture(t)
	rec, out := f.do(t, http.MethodPost, "/api/orders", bearer(t, "u1", "customer"), placeBody(6))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", out.Error.Code)
}

func TestRoleGates(t *testing.T) {
	f := newFixture(t)
	customer := bearer(t, "u1", "customer")
	seller := bearer(t, "s1", "seller")

	rec, out := f.do(t, http.MethodGet, "/api/orders/stats/summary", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", out.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/orders/stats/summary", seller, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/orders/stats/summary", bearer(t, "a1", "admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/orders/bulk", customer, map[string]any{"orders": []any{placeBody(1)}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out = f.do(t, http.MethodPost, "/api/orders/bulk", seller, map[string]any{"orders": []any{placeBody(1), placeBody(1)}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created []orderResponse
	require.NoError(t, json.Unmarshal(out.Data, &created))
	assert.Len(t, created, 2)

	rec, _ = f.do(t, http.MethodPatch, "/api/orders/"+created[0].ID+"/status", customer, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodPatch, "/api/orders/"+created[0].ID+"/status", seller, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out = f.do(t, http.MethodPatch, "/api/orders/"+created[0].ID+"/status", seller, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)

	rec, _ = f.do(t, http.MethodPatch, "/api/orders/"+created[0].ID+"/status", seller, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/payments/"+created[0].ID+"/refund", seller, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListOrdersOverHTTP(t *testing.T) {
	f := newFixture(t)
	alice := bearer(t, "u1", "customer")
	for n := 0; n < 3; n++ {
		rec, _ := f.do(t, http.MethodPost, "/api/orders", alice, placeBody(1))
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, _ := f.do(t, http.MethodPost, "/api/orders", bearer(t, "u2", "customer"), placeBody(1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, out := f.do(t, http.MethodGet, "/api/orders?page=2&limit=2&sortBy=createdAt&sortOrder=asc", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var items []orderResponse
	require.NoError(t, json.Unmarshal(out.Data, &items))
	assert.Len(t, items, 1)
	assert.Equal(t, map[string]int{"page": 2, "limit": 2, "total": 3, "totalPages": 2}, out.Meta)

	rec, out = f.do(t, http.MethodGet, "/api/orders?sortBy=color", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/orders?minTotal=abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/orders?sortOrder=sideways", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteAndBadBody(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", out.Error.Code)

	rec, out = f.do(t, http.MethodPost, "/api/orders", bearer(t, "u1", "customer"), map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)

	rec, out = f.do(t, http.MethodGet, "/api/orders/ORD-missing", bearer(t, "a1", "admin"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", out.Error.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor("VALIDATION_ERROR"))
	assert.Equal(t, http.StatusBadRequest, StatusFor("INSUFFICIENT_STOCK"))
	assert.Equal(t, http.StatusUnauthorized, StatusFor("UNAUTHORIZED"))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("SOMETHING_ELSE"))
}
