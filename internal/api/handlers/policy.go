package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vigil-dlp/vigil/internal/store"
)

// PolicyService exposes the enforcement mode and watch configuration.
type PolicyService struct {
	Settings   *store.Settings
	WatchPaths []string
}

func NewPolicyService(settings *store.Settings, watchPaths []string) *PolicyService {
	return &PolicyService{Settings: settings, WatchPaths: watchPaths}
}

// GetPolicyHandler reports the active mode, watched roots and last manual
// scan time.
func GetPolicyHandler(svc *PolicyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"mode":        svc.Settings.PolicyMode(),
			"watch_paths": svc.WatchPaths,
		}
		if t := svc.Settings.LastScanTime(); !t.IsZero() {
			resp["last_scan_time"] = t.Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// UpdatePolicyHandler switches between block and warn.
func UpdatePolicyHandler(svc *PolicyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := svc.Settings.SetPolicyMode(req.Mode); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": svc.Settings.PolicyMode()})
	}
}
