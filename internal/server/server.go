// Package server wires tagtable's HTTP handlers onto a chi router, the
// same routing stack and middleware the teacher's server.go uses.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"tagtable/internal/engine"
	"tagtable/internal/platform/changesbus"
	"tagtable/internal/server/handler/health"
	"tagtable/internal/server/handler/table"
)

// requestID stamps every request with a fresh UUID rather than chi's
// sequential counter-based RequestID, so log lines correlate across a
// restarted process the same way the teacher's request IDs do.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// New builds the HTTP handler for tableserver against t, publishing
// every committed write to publisher if it's non-nil.
func New(t *engine.Table, publisher *changesbus.Publisher) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	health.Mount(r)
	table.New(t, publisher).Mount(r)

	return r
}
