package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vigil-dlp/vigil/internal/enforce"
	"github.com/vigil-dlp/vigil/internal/store"
)

// AlertService exposes the alert ledger and its lifecycle transitions.
type AlertService struct {
	Ledger *store.AlertLedger
	Engine *enforce.Engine
}

func NewAlertService(ledger *store.AlertLedger, engine *enforce.Engine) *AlertService {
	return &AlertService{Ledger: ledger, Engine: engine}
}

// GetAlertsHandler lists alerts in insertion order, optionally filtered by
// free text (?q=) and lifecycle status (?status=).
func GetAlertsHandler(svc *AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.ListFilter{
			Query:  r.URL.Query().Get("q"),
			Status: r.URL.Query().Get("status"),
		}
		alerts, err := svc.Ledger.List(filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list alerts")
			return
		}
		if alerts == nil {
			alerts = []store.Alert{}
		}
		writeJSON(w, http.StatusOK, alerts)
	}
}

// GetAlertHandler returns one alert by id.
func GetAlertHandler(svc *AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert, err := svc.Ledger.Get(mux.Vars(r)["id"])
		if err != nil {
			if errors.Is(err, store.ErrAlertNotFound) {
				writeError(w, http.StatusNotFound, "Alert not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to retrieve alert")
			return
		}
		writeJSON(w, http.StatusOK, alert)
	}
}

// AllowAlertHandler restores a quarantined file, whitelists its origin and
// marks the alert allowed.
func AllowAlertHandler(svc *AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert, err := svc.Engine.Allow(mux.Vars(r)["id"])
		if err != nil {
			switch {
			case errors.Is(err, store.ErrAlertNotFound):
				writeError(w, http.StatusNotFound, "Alert not found")
			case errors.Is(err, enforce.ErrRestoreConflict):
				writeError(w, http.StatusConflict, "Restore target already exists")
			default:
				writeError(w, http.StatusInternalServerError, "Failed to allow alert")
			}
			return
		}
		writeJSON(w, http.StatusOK, alert)
	}
}

// DismissAlertHandler retires the alert without touching any quarantined
// file.
func DismissAlertHandler(svc *AlertService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert, err := svc.Engine.Dismiss(mux.Vars(r)["id"])
		if err != nil {
			if errors.Is(err, store.ErrAlertNotFound) {
				writeError(w, http.StatusNotFound, "Alert not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to dismiss alert")
			return
		}
		writeJSON(w, http.StatusOK, alert)
	}
}

type bulkRequest struct {
	IDs []string `json:"ids"`
}

// BulkAllowHandler applies allow to each id independently and reports
// per-item outcomes.
func BulkAllowHandler(svc *AlertService) http.HandlerFunc {
	return bulkHandler(func(ids []string) []enforce.ItemResult {
		return svc.Engine.BulkAllow(ids)
	})
}

// BulkDismissHandler applies dismiss to each id independently.
func BulkDismissHandler(svc *AlertService) http.HandlerFunc {
	return bulkHandler(func(ids []string) []enforce.ItemResult {
		return svc.Engine.BulkDismiss(ids)
	})
}

func bulkHandler(op func([]string) []enforce.ItemResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if len(req.IDs) == 0 {
			writeError(w, http.StatusBadRequest, "ids must not be empty")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": op(req.IDs)})
	}
}
