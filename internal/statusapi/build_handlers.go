package statusapi

import (
	"encoding/json"
	"net/http"

	"github.com/KganDev/irish-rail-schedule/internal/logging"
)

// StatusResponse mirrors the exported status.json, extended with the
// snapshot-store row counts.
type StatusResponse struct {
	OK          bool           `json:"ok"`
	Latest      string         `json:"latest"`
	GeneratedAt string         `json:"generatedAt"`
	TableCounts map[string]int `json:"tableCounts,omitempty"`
}

func (api *StatusAPI) statusHandler(w http.ResponseWriter, r *http.Request) {
	state := api.BuildState()
	if state == nil {
		api.sendNoBuild(w)
		return
	}

	api.sendJSON(w, StatusResponse{
		OK:          true,
		Latest:      state.Version,
		GeneratedAt: state.Windows.GeneratedAt,
		TableCounts: state.TableCounts,
	})
}

func (api *StatusAPI) windowsHandler(w http.ResponseWriter, r *http.Request) {
	state := api.BuildState()
	if state == nil {
		api.sendNoBuild(w)
		return
	}

	api.sendJSON(w, state.Windows)
}

func (api *StatusAPI) diagnosticsHandler(w http.ResponseWriter, r *http.Request) {
	state := api.BuildState()
	if state == nil {
		api.sendNoBuild(w)
		return
	}
	if state.Diagnostics == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "pruning was disabled for the latest build",
		})
		return
	}

	api.sendJSON(w, state.Diagnostics)
}

func (api *StatusAPI) sendJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.LogError(api.Logger, "failed to encode response", err)
	}
}

func (api *StatusAPI) sendNoBuild(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "no build has completed yet",
	})
}
