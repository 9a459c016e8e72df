package idempotency

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/ghuser/campusreserve/pkg/httpx"
	"github.com/ghuser/campusreserve/pkg/logger"
)

// HeaderKey is the request header carrying the client-supplied idempotency key.
const HeaderKey = "Idempotency-Key"

// HeaderReplayed is set to "true" on responses served from the idempotency cache.
const HeaderReplayed = "Idempotency-Replayed"

// Middleware wraps mutating endpoints with the idempotency guard:
//
//   - GET/HEAD/OPTIONS bypass the guard (read-only commands).
//   - A mutating request without an Idempotency-Key header is rejected with 400.
//   - A replayed key returns 409 Conflict with the originally cached response
//     body and Idempotency-Replayed: true, without re-executing the handler.
//   - A key whose first execution is still running returns 409.
//
// Successful (non-5xx) responses are cached under the key for the store TTL;
// 5xx responses release the claim so the client may retry.
func Middleware(store *Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(HeaderKey)
			if key == "" {
				httpx.JSONError(w, http.StatusBadRequest, ErrKeyMissing.Error())
				return
			}

			rec, err := store.Claim(r.Context(), key)
			switch {
			case errors.Is(err, ErrReplay):
				w.Header().Set(HeaderReplayed, "true")
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusConflict)
				_, _ = w.Write(rec.Body)
				return
			case errors.Is(err, ErrInFlight):
				httpx.JSONError(w, http.StatusConflict, ErrInFlight.Error())
				return
			case err != nil:
				log.ErrorContext(r.Context(), "idempotency claim failed", "error", err)
				httpx.JSONError(w, http.StatusInternalServerError, "idempotency store unavailable")
				return
			}

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status >= http.StatusInternalServerError {
				if err := store.Release(r.Context(), key); err != nil {
					log.ErrorContext(r.Context(), "idempotency release failed", "key", key, "error", err)
				}
				return
			}
			if err := store.Complete(r.Context(), key, rw.status, rw.body.Bytes()); err != nil {
				log.ErrorContext(r.Context(), "idempotency complete failed", "key", key, "error", err)
			}
		})
	}
}

// recordingWriter captures the status and body so the response can be cached.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.body.Write(p)
	return rw.ResponseWriter.Write(p)
}
