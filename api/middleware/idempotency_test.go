package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/delacruzbakes/bakeshop-backend/pkg/redis"
)

type fakeIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]string
	ttls    map[string]time.Duration
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{
		records: map[string]string{},
		ttls:    map[string]time.Duration{},
	}
}

func (f *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.records[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return stored, nil
}

func (f *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[key]; ok {
		return false, nil
	}
	f.records[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func idempotentHandler(t *testing.T, store pkgredis.IdempotencyStore) (http.Handler, *int) {
	t.Helper()
	calls := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	})
	return Idempotency(store, nil)(inner), &calls
}

func postCheckout(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler, calls := idempotentHandler(t, store)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postCheckout("key-1", `{"a":1}`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, *calls)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postCheckout("key-1", `{"a":1}`))
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 1, *calls, "replay must not re-run the handler")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler, calls := idempotentHandler(t, store)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postCheckout("key-1", `{"a":1}`))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postCheckout("key-1", `{"a":2}`))
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyRequiresKeyHeader(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler, calls := idempotentHandler(t, store)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postCheckout("", `{"a":1}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, 0, *calls)
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler, calls := idempotentHandler(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, store.records)
}

func TestIdempotencyCriticalRoutesGetLongTTL(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler, _ := idempotentHandler(t, store)

	handler.ServeHTTP(httptest.NewRecorder(), postCheckout("key-1", `{}`))
	require.Len(t, store.ttls, 1)
	for _, ttl := range store.ttls {
		assert.Equal(t, criticalIdempotencyTTL, ttl)
	}

	verify := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(`{}`))
	verify.Header.Set("Idempotency-Key", "key-2")
	handler.ServeHTTP(httptest.NewRecorder(), verify)

	scoped := false
	for key, ttl := range store.ttls {
		if strings.Contains(key, "/api/v1/payments/verify") {
			scoped = true
			assert.Equal(t, defaultIdempotencyTTL, ttl)
		}
	}
	require.True(t, scoped, "verify route should have been recorded")
}

func TestIdempotencyScopesKeysPerCustomer(t *testing.T) {
	store := newFakeIdempotencyStore()
	handler, calls := idempotentHandler(t, store)

	alice := postCheckout("key-1", `{}`)
	alice = alice.WithContext(WithCustomerID(alice.Context(), "alice"))
	handler.ServeHTTP(httptest.NewRecorder(), alice)

	bob := postCheckout("key-1", `{}`)
	bob = bob.WithContext(WithCustomerID(bob.Context(), "bob"))
	handler.ServeHTTP(httptest.NewRecorder(), bob)

	assert.Equal(t, 2, *calls, "same key from different customers must not collide")
	assert.Len(t, store.records, 2)
}
