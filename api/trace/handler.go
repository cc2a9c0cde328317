// Package trace exposes the coordinator audit trail and current prices
// over HTTP for diagnostics.
package trace

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/caribou/core/model"
	coretrace "github.com/kilianp07/caribou/core/trace"
)

// DualSource returns a snapshot of the current dual prices.
type DualSource interface {
	Duals() model.DualState
}

// NewTraceHandler returns an HTTP handler exposing trace records via
// GET /api/trace. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty. The run_id, start and end
// query parameters filter the records; start and end are RFC 3339.
func NewTraceHandler(store coretrace.Store, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, r *http.Request) {
		q := coretrace.Query{RunID: r.URL.Query().Get("run_id")}
		for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := r.URL.Query().Get(name)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+name+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []coretrace.Record{}
		}
		writeJSON(w, records)
	})
}

// NewDualsHandler serves the current dual prices via GET /api/duals.
func NewDualsHandler(src DualSource, token string) http.Handler {
	return guard(token, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, src.Duals())
	})
}

// NewMux mounts both handlers next to an optional metrics handler.
func NewMux(store coretrace.Store, src DualSource, metrics http.Handler, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/trace", NewTraceHandler(store, token))
	mux.Handle("/api/duals", NewDualsHandler(src, token))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

func guard(token string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
