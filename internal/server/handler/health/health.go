// Package health exposes a liveness endpoint for tableserver.
package health

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Mount registers the health check route onto r.
func Mount(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
