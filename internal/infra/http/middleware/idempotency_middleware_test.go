package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/Go-LedgerFlow-Invoice-Settlement/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	responses map[string]gateway.CachedResponse
	locks     map[string]bool
	failGet   bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{responses: map[string]gateway.CachedResponse{}, locks: map[string]bool{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (*gateway.CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, errors.New("redis: connection refused")
	}
	resp, ok := s.responses[key]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (s *memoryStore) Save(_ context.Context, key string, resp gateway.CachedResponse, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[key] = resp
	return nil
}

func (s *memoryStore) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *memoryStore) Unlock(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}

func countingHandler(status int, body string) (http.Handler, *int) {
	calls := 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}), &calls
}

func send(h http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysResponse(t *testing.T) {
	store := newMemoryStore()
	next, calls := countingHandler(http.StatusCreated, `{"id":"wtx-1"}`)
	h := Idempotency(store, time.Hour)(next)

	first := send(h, "/wallets/u1/credit", "key-1")
	second := send(h, "/wallets/u1/credit", "key-1")

	assert.Equal(t, 1, *calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.Empty(t, store.locks)
}

func TestIdempotency_KeyIsScopedToRoute(t *testing.T) {
	store := newMemoryStore()
	next, calls := countingHandler(http.StatusCreated, `{}`)
	h := Idempotency(store, time.Hour)(next)

	send(h, "/wallets/u1/credit", "key-1")
	send(h, "/wallets/u1/debit", "key-1")

	assert.Equal(t, 2, *calls)
}

func TestIdempotency_ServerErrorsAreNotCached(t *testing.T) {
	store := newMemoryStore()
	next, calls := countingHandler(http.StatusServiceUnavailable, `{"retryable":true}`)
	h := Idempotency(store, time.Hour)(next)

	send(h, "/payments", "key-1")
	send(h, "/payments", "key-1")

	assert.Equal(t, 2, *calls)
	assert.Empty(t, store.responses)
}

func TestIdempotency_InFlightKeyConflicts(t *testing.T) {
	store := newMemoryStore()
	store.locks["POST:/withdrawals:key-1"] = true
	next, calls := countingHandler(http.StatusCreated, `{}`)
	h := Idempotency(store, time.Hour)(next)

	rec := send(h, "/withdrawals", "key-1")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, *calls)
}

func TestIdempotency_WithoutKeyOrStoreDown(t *testing.T) {
	store := newMemoryStore()
	next, calls := countingHandler(http.StatusOK, `{}`)
	h := Idempotency(store, 0)(next)

	send(h, "/invoices", "")
	send(h, "/invoices", "")
	require.Equal(t, 2, *calls)

	store.failGet = true
	rec := send(h, "/invoices", "key-9")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, *calls)
}
