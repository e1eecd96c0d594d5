package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	entries map[string][]byte
	fail    bool
	saves   int
}

func (c *fakeCache) GetResponse(_ context.Context, key string) ([]byte, bool, error) {
	if c.fail {
		return nil, false, errors.New("redis unavailable")
	}
	val, ok := c.entries[key]
	return val, ok, nil
}

func (c *fakeCache) SaveResponse(_ context.Context, key string, val []byte) error {
	if c.fail {
		return errors.New("redis unavailable")
	}
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[key] = val
	c.saves++
	return nil
}

func countingHandler(status int, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(status)
		io.WriteString(w, `{"id":"order-1"}`)
	})
}

func request(t *testing.T, h http.Handler, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_ReplaysCachedResponse(t *testing.T) {
	cache := &fakeCache{}
	calls := 0
	h := Middleware(cache, slog.New(slog.NewTextHandler(io.Discard, nil)))(countingHandler(http.StatusCreated, &calls))

	first := request(t, h, "key-1")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, cache.saves)

	second := request(t, h, "key-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestMiddleware_DistinctKeysDoNotCollide(t *testing.T) {
	cache := &fakeCache{}
	calls := 0
	h := Middleware(cache, slog.New(slog.NewTextHandler(io.Discard, nil)))(countingHandler(http.StatusCreated, &calls))

	request(t, h, "key-1")
	request(t, h, "key-2")
	assert.Equal(t, 2, calls)
}

func TestMiddleware_NoKeyPassesThrough(t *testing.T) {
	cache := &fakeCache{}
	calls := 0
	h := Middleware(cache, slog.New(slog.NewTextHandler(io.Discard, nil)))(countingHandler(http.StatusCreated, &calls))

	request(t, h, "")
	request(t, h, "")
	assert.Equal(t, 2, calls)
	assert.Zero(t, cache.saves)
}

func TestMiddleware_ErrorResponsesNotCached(t *testing.T) {
	cache := &fakeCache{}
	calls := 0
	h := Middleware(cache, slog.New(slog.NewTextHandler(io.Discard, nil)))(countingHandler(http.StatusConflict, &calls))

	request(t, h, "key-1")
	request(t, h, "key-1")
	// Failures may be retried, so both attempts reach the handler.
	assert.Equal(t, 2, calls)
	assert.Zero(t, cache.saves)
}

func TestMiddleware_CacheOutageDoesNotBlock(t *testing.T) {
	cache := &fakeCache{fail: true}
	calls := 0
	h := Middleware(cache, slog.New(slog.NewTextHandler(io.Discard, nil)))(countingHandler(http.StatusCreated, &calls))

	rec := request(t, h, "key-1")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, calls)
}
