// Package table implements the HTTP handlers for reading, writing, and
// deleting entries in a tagtable Table, grounded on the teacher's
// dbentry handler's chi-based request/response shape.
package table

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"tagtable/internal/engine"
	"tagtable/internal/platform/changesbus"
)

// Handler serializes every write against the table behind a mutex: the
// storage engine itself only supports one writer at a time, and chi
// may otherwise run concurrent requests on separate goroutines.
type Handler struct {
	mu        sync.Mutex
	table     *engine.Table
	publisher *changesbus.Publisher // nil if no changes bus is configured
}

// New wraps table for HTTP access. publisher may be nil.
func New(t *engine.Table, publisher *changesbus.Publisher) *Handler {
	return &Handler{table: t, publisher: publisher}
}

// Mount registers this handler's routes onto r.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/entries/{key}", h.get)
	r.Put("/entries/{key}", h.put)
	r.Delete("/entries/{key}", h.delete)
	r.Get("/check", h.check)
}

type entryBody struct {
	Key string `json:"key"`
	Tag string `json:"tag"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	h.mu.Lock()
	tag, found, err := h.table.GetExactEntry([]byte(key))
	h.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errBody(err))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entryBody{Key: key, Tag: string(tag)})
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var body entryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody(err))
		return
	}

	h.mu.Lock()
	err := h.table.Add([]byte(key), []byte(body.Tag))
	var cs *engine.ChangeSet
	if err == nil {
		cs, err = h.table.Commit(h.table.Revision() + 1)
	}
	h.mu.Unlock()

	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errBody(err))
		return
	}
	if h.publisher != nil && cs != nil {
		_ = h.publisher.Publish(cs)
	}
	writeJSON(w, http.StatusOK, entryBody{Key: key, Tag: body.Tag})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	h.mu.Lock()
	found, err := h.table.Del([]byte(key))
	var cs *engine.ChangeSet
	if err == nil && found {
		cs, err = h.table.Commit(h.table.Revision() + 1)
	}
	h.mu.Unlock()

	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errBody(err))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if h.publisher != nil && cs != nil {
		_ = h.publisher.Publish(cs)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := engine.CheckOptions{
		FullTree:   q.Get("full") == "true",
		ShowBitmap: q.Get("bitmap") == "true",
		ShowStats:  q.Get("stats") == "true",
	}
	h.mu.Lock()
	report, err := h.table.Check(opts)
	h.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errBody(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func errBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
