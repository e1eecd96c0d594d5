package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// ResponseCache is the replay contract, satisfied by Store.
type ResponseCache interface {
	GetResponse(ctx context.Context, key string) ([]byte, bool, error)
	SaveResponse(ctx context.Context, key string, val []byte) error
}

// Middleware replays the cached response for a repeated Idempotency-Key.
// Requests without the header pass through untouched.
func Middleware(store ResponseCache, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, hit, err := store.GetResponse(r.Context(), key)
			if err != nil {
				// Redis being down must not block the request path.
				log.Error("idempotency lookup failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if hit {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err == nil {
					log.Info("idempotency hit, replaying response", "key", key)
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Idempotency-Hit", "true")
					w.WriteHeader(cached.Status)
					_, _ = w.Write(cached.Body)
					return
				}
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Only successful outcomes are worth replaying; errors may be retried.
			if rec.status < 200 || rec.status >= 300 {
				return
			}
			payload, err := json.Marshal(cachedResponse{Status: rec.status, Body: rec.body.Bytes()})
			if err != nil {
				return
			}
			if err := store.SaveResponse(r.Context(), key, payload); err != nil {
				log.Error("idempotency save failed", "key", key, "err", err)
			}
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
