package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
	"github.com/ariefcatur/go-petshop-orders.git/internal/httpx"
	"github.com/ariefcatur/go-petshop-orders.git/internal/orders"
	"github.com/ariefcatur/go-petshop-orders.git/internal/outbox"
	"github.com/ariefcatur/go-petshop-orders.git/internal/peers"
)

type stubCustomers struct{ err error }

func (s *stubCustomers) CustomerExists(ctx context.Context, id int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return id == 1, nil
}

type stubCatalog struct{}

func (s *stubCatalog) GetProduct(ctx context.Context, id int64) (peers.Product, error) {
	if id != 1 {
		return peers.Product{}, errors.Wrapf(errs.ErrNotFound, "product %d", id)
	}
	return peers.Product{ID: 1, Name: "kibble", PriceCents: 5000, QuantityInStock: 5, Active: true}, nil
}

type nullBroker struct{}

func (nullBroker) Send(ctx context.Context, destination string, payload any) error { return nil }
func (nullBroker) SendBatch(ctx context.Context, destination string, payloads []any) error {
	return nil
}
func (nullBroker) Healthy(ctx context.Context) bool { return true }
func (nullBroker) Close() error                     { return nil }

func newServer(customers orders.CustomerDirectory) *httptest.Server {
	svc := orders.NewService(
		orders.NewMemoryRepo(),
		customers,
		&stubCatalog{},
		orders.NewPublisher(nullBroker{}, outbox.NewMemoryStore()),
	)
	r := httpx.NewRouter()
	(&httpx.OrdersHandler{Service: svc}).Register(r)
	return httptest.NewServer(r)
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	srv := newServer(&stubCustomers{})
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/orders", `{"customer_id":1,"items":[{"product_id":1,"quantity":3}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/orders/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/orders/1/confirm", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/orders/1/confirm", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "double confirm")

	resp = do(t, http.MethodDelete, srv.URL+"/orders/1", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "confirmed orders are not deletable")

	resp = do(t, http.MethodPost, srv.URL+"/orders/1/advance", `{"status":"PROCESSING"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/orders/1/cancel", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/orders/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/orders/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(&stubCustomers{})
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/orders", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/orders", `{"customer_id":2,"items":[{"product_id":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "unknown customer")

	resp = do(t, http.MethodPost, srv.URL+"/orders", `{"customer_id":1,"items":[{"product_id":1,"quantity":6}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "insufficient stock at creation")

	resp = do(t, http.MethodGet, srv.URL+"/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDependencyOutageMapsToServiceUnavailable(t *testing.T) {
	depErr := errors.Wrap(errs.ErrDependencyUnavailable, "customer-svc: circuit open")
	srv := newServer(&stubCustomers{err: depErr})
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/orders", `{"customer_id":1,"items":[{"product_id":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get("Retry-After"))
}
