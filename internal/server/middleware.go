package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/workspace"
)

type ctxKey int

const keyCtx ctxKey = iota

// KeySource returns the currently stored API keys.
type KeySource func() ([]workspace.APIKey, error)

// AuthMiddleware requires "Authorization: Bearer <secret>" matching a stored
// key. GET and HEAD need the read permission, every other method needs
// write. The matched key is stored in the request context.
func AuthMiddleware(keys KeySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, apperr.New(apperr.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}
			stored, err := keys()
			if err != nil {
				writeError(w, err)
				return
			}
			key, ok := workspace.LookupAPIKey(stored, strings.TrimPrefix(auth, "Bearer "))
			if !ok {
				writeError(w, apperr.New(apperr.CodeUnauthorized, "Invalid API key"))
				return
			}
			perm := workspace.PermWrite
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				perm = workspace.PermRead
			}
			if !key.Can(perm) {
				writeError(w, apperr.Newf(apperr.CodeForbidden, "API key does not have %s permission", perm).
					With("permission", perm))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), keyCtx, key)))
		})
	}
}

// keyFrom returns the authenticated key of a request.
func keyFrom(ctx context.Context) (workspace.APIKey, bool) {
	k, ok := ctx.Value(keyCtx).(workspace.APIKey)
	return k, ok
}

// RequestLogger logs one line per request and counts it.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
