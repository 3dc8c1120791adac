package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.State())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	state := h.session.State()

	totalSnapshots := 0
	settling := 0
	for _, e := range state.Entities {
		totalSnapshots += e.HistoryLen
		if e.Settling {
			settling++
		}
	}

	writeJSON(w, map[string]interface{}{
		"sessionTime":    state.SessionTime,
		"tickCount":      state.TickCount,
		"tickRate":       state.TickRate,
		"entityCount":    len(state.Entities),
		"totalSnapshots": totalSnapshots,
		"settling":       settling,
		"journal":        h.session.JournalStats(),
	})
}

func (h *routerHandlers) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	history, ok := h.session.EntityHistory(entityID)
	if !ok {
		writeError(w, "Unknown entity", http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]interface{}{
		"entityId":  entityID,
		"snapshots": history,
		"count":     len(history),
	})
}

func (h *routerHandlers) handleGetEntityStats(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	stats, ok := h.session.EntityStats(entityID)
	if !ok {
		writeError(w, "Unknown entity", http.StatusNotFound)
		return
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetAttribution(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	writeJSON(w, map[string]interface{}{
		"entityId":       entityID,
		"inRecallWindow": h.session.IsWithinAttributionWindow(entityID),
	})
}

func (h *routerHandlers) handleRecall(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	result, err := h.session.RequestRecall(entityID)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	RecordRecallOutcome(result.Outcome.String())

	resp := map[string]interface{}{
		"entityId": entityID,
		"outcome":  result.Outcome.String(),
		"executed": !result.Outcome.Rejected(),
	}
	if result.HasSnapshot {
		resp["snapshot"] = result.Snapshot
	}

	// Rejections are expected conditions, not handler errors
	writeJSON(w, resp)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
