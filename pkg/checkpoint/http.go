package checkpoint

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// Handler exposes the hub to instrumentation builds of the app:
//
//	POST /checkpoints/{name}   signal a checkpoint
//	GET  /checkpoints          totals received so far, zero for known but unseen
func Handler(h *Hub) http.Handler {
	r := chi.NewRouter()
	Routes(r, h)
	return r
}

// Routes registers the checkpoint endpoints on r.
func Routes(r chi.Router, h *Hub) {
	r.Post("/checkpoints/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		cp, err := Parse(name)
		if err != nil {
			logger.Warn("rejected checkpoint %q: %v", name, err)
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.Signal(cp)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/checkpoints", func(w http.ResponseWriter, _ *http.Request) {
		totals := make(map[string]int)
		for _, cp := range Known() {
			totals[string(cp)] = 0
		}
		for cp, n := range h.Snapshot() {
			totals[string(cp)] = n
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"checkpoints": totals})
	})
}
