package handlers

import (
	"net/http"
	"time"

	"github.com/vigil-dlp/vigil/internal/store"
)

// StatsService aggregates totals for the dashboard.
type StatsService struct {
	Ledger     *store.AlertLedger
	Quarantine *store.QuarantineStore
	Whitelist  *store.Whitelist
	Settings   *store.Settings
}

func NewStatsService(ledger *store.AlertLedger, quarantine *store.QuarantineStore, whitelist *store.Whitelist, settings *store.Settings) *StatsService {
	return &StatsService{Ledger: ledger, Quarantine: quarantine, Whitelist: whitelist, Settings: settings}
}

// GetStatsHandler returns alert, quarantine and whitelist totals plus the
// active policy mode.
func GetStatsHandler(svc *StatsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts, err := svc.Ledger.List(store.ListFilter{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to gather stats")
			return
		}
		var pending int
		for _, a := range alerts {
			if a.Status == store.StatusPending {
				pending++
			}
		}
		quarantined, err := svc.Quarantine.Count()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to gather stats")
			return
		}
		entries, err := svc.Whitelist.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to gather stats")
			return
		}

		stats := map[string]any{
			"alerts_total":      len(alerts),
			"alerts_pending":    pending,
			"quarantined_files": quarantined,
			"whitelist_entries": len(entries),
			"policy_mode":       svc.Settings.PolicyMode(),
			"last_updated":      time.Now().Format(time.RFC3339),
		}
		if t := svc.Settings.LastScanTime(); !t.IsZero() {
			stats["last_scan_time"] = t.Format(time.RFC3339)
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
