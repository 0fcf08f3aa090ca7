package peers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-petshop-orders.git/internal/errs"
)

func fastClient(name, base string) *Client {
	c := New(name, base, 5*time.Second)
	c.attemptTimeout = 100 * time.Millisecond
	c.initialBackoff = time.Millisecond
	return c
}

func TestClientDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"kibble","price_cents":5000,"quantity_in_stock":5,"active":true}`))
	}))
	defer srv.Close()

	cat := &ProductCatalog{Client: fastClient("products", srv.URL)}
	p, err := cat.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.PriceCents)
	assert.Equal(t, int64(5), p.QuantityInStock)
	assert.True(t, p.Active)
}

func TestClientNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := fastClient("products", srv.URL)
	err := c.getJSON(context.Background(), "/products/9", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, int64(1), hits.Load(), "404 must not be retried")
}

func TestClientRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := fastClient("customers", srv.URL)
	require.NoError(t, c.getJSON(context.Background(), "/customers/1", nil))
	assert.Equal(t, int64(2), hits.Load())
}

func TestCircuitOpensAfterConsecutiveTimeouts(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(300 * time.Millisecond) // beyond the per-attempt timeout
	}))
	defer srv.Close()

	c := fastClient("customers", srv.URL)
	err := c.getJSON(context.Background(), "/customers/1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)

	// the breaker tripped during the retry sequence; further calls must
	// fail fast without touching the network
	before := hits.Load()
	start := time.Now()
	err = c.getJSON(context.Background(), "/customers/1", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)
	assert.Equal(t, before, hits.Load(), "open circuit must not attempt the call")
	assert.Less(t, time.Since(start), 100*time.Millisecond, "open circuit must fail fast")
}

func TestBreakerStateIsIsolatedPerPeer(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	bad := fastClient("customers", broken.URL)
	good := fastClient("products", healthy.URL)

	require.Error(t, bad.getJSON(context.Background(), "/customers/1", nil))
	require.NoError(t, good.getJSON(context.Background(), "/products/1", nil))
}

type memReplica struct {
	mu    sync.Mutex
	known map[int64]bool
}

func (m *memReplica) Known(ctx context.Context, id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known[id]
}

func (m *memReplica) Remember(ctx context.Context, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known == nil {
		m.known = make(map[int64]bool)
	}
	m.known[id] = true
}

func TestCustomerExistsFallsBackToReplica(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	replica := &memReplica{}
	dir := &CustomerDirectory{Client: fastClient("customers", srv.URL), Replica: replica}

	ok, err := dir.CustomerExists(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, replica.Known(context.Background(), 42), "successful check populates the replica")

	fail.Store(true)
	ok, err = dir.CustomerExists(context.Background(), 42)
	require.NoError(t, err, "replica hit degrades gracefully")
	assert.True(t, ok)

	ok, err = dir.CustomerExists(context.Background(), 43)
	require.Error(t, err, "replica miss propagates the retryable error")
	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)
	assert.False(t, ok)
}

func TestCustomerExistsMissingCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := &CustomerDirectory{Client: fastClient("customers", srv.URL)}
	ok, err := dir.CustomerExists(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, ok)
}
