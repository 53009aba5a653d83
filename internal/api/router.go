// Package api exposes the bot's read-only HTTP endpoints: recent signals
// and trades from the journal, risk status, and the effective config.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"signalbotv1/internal/risk"
	"signalbotv1/internal/store/sqlite"
)

const defaultListLimit = 50

// Deps are the components the API reads from. Journal may be nil when
// persistence is disabled; its endpoints then return 404.
type Deps struct {
	Journal *sqlite.Journal
	Risk    *risk.Manager
	Config  interface{} // effective config, serialized as-is
}

// NewRouter sets up the HTTP routes.
func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/v1/signals", func(w http.ResponseWriter, r *http.Request) {
		if d.Journal == nil {
			http.NotFound(w, r)
			return
		}
		recs, err := d.Journal.RecentSignals(limitParam(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, recs)
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		if d.Journal == nil {
			http.NotFound(w, r)
			return
		}
		recs, err := d.Journal.RecentTrades(limitParam(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, recs)
	})

	mux.HandleFunc("/api/v1/risk", func(w http.ResponseWriter, r *http.Request) {
		if d.Risk == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, d.Risk.GetStatus())
	})

	mux.HandleFunc("/api/v1/config", func(w http.ResponseWriter, r *http.Request) {
		if d.Config == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, d.Config)
	})

	return mux
}

func limitParam(r *http.Request) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultListLimit
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
