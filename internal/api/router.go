package api

import (
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/vigil-dlp/vigil/internal/api/handlers"
	"github.com/vigil-dlp/vigil/internal/auth"
	"github.com/vigil-dlp/vigil/internal/enforce"
	"github.com/vigil-dlp/vigil/internal/store"
	"github.com/vigil-dlp/vigil/internal/watch"
)

// Deps carries everything the control surface operates on.
type Deps struct {
	Auth       *auth.Service
	Ledger     *store.AlertLedger
	Engine     *enforce.Engine
	Whitelist  *store.Whitelist
	Quarantine *store.QuarantineStore
	Settings   *store.Settings
	Pipeline   *watch.Pipeline
	WatchPaths []string
}

// Router wires all control-surface routes. Health and login are public;
// everything else requires a bearer token.
func Router(deps Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(SecurityMiddleware)
	router.Use(RateLimitMiddleware(rate.Limit(10), 20))

	alertSvc := handlers.NewAlertService(deps.Ledger, deps.Engine)
	whitelistSvc := handlers.NewWhitelistService(deps.Whitelist)
	policySvc := handlers.NewPolicyService(deps.Settings, deps.WatchPaths)
	scanSvc := handlers.NewScanService(deps.Pipeline, deps.WatchPaths)
	quarantineSvc := handlers.NewQuarantineService(deps.Quarantine)
	statsSvc := handlers.NewStatsService(deps.Ledger, deps.Quarantine, deps.Whitelist, deps.Settings)

	public := router.PathPrefix("/api").Subrouter()
	public.HandleFunc("/health", handlers.HealthHandler).Methods("GET")
	public.HandleFunc("/login", handlers.LoginHandler(deps.Auth)).Methods("POST")

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(deps.Auth.Middleware)

	protected.HandleFunc("/alerts", handlers.GetAlertsHandler(alertSvc)).Methods("GET")
	protected.HandleFunc("/alerts/bulk-allow", handlers.BulkAllowHandler(alertSvc)).Methods("POST")
	protected.HandleFunc("/alerts/bulk-dismiss", handlers.BulkDismissHandler(alertSvc)).Methods("POST")
	protected.HandleFunc("/alerts/{id}", handlers.GetAlertHandler(alertSvc)).Methods("GET")
	protected.HandleFunc("/alerts/{id}/allow", handlers.AllowAlertHandler(alertSvc)).Methods("POST")
	protected.HandleFunc("/alerts/{id}/dismiss", handlers.DismissAlertHandler(alertSvc)).Methods("POST")

	protected.HandleFunc("/whitelist", handlers.GetWhitelistHandler(whitelistSvc)).Methods("GET")
	protected.HandleFunc("/whitelist", handlers.AddWhitelistHandler(whitelistSvc)).Methods("POST")
	protected.HandleFunc("/whitelist/all", handlers.ClearWhitelistHandler(whitelistSvc)).Methods("DELETE")
	protected.HandleFunc("/whitelist", handlers.RemoveWhitelistHandler(whitelistSvc)).Methods("DELETE")

	protected.HandleFunc("/policy", handlers.GetPolicyHandler(policySvc)).Methods("GET")
	protected.HandleFunc("/policy", handlers.UpdatePolicyHandler(policySvc)).Methods("PUT")

	protected.HandleFunc("/scan", handlers.TriggerScanHandler(scanSvc)).Methods("POST")

	protected.HandleFunc("/quarantine", handlers.GetQuarantineHandler(quarantineSvc)).Methods("GET")
	protected.HandleFunc("/quarantine/{id}", handlers.GetQuarantineRecordHandler(quarantineSvc)).Methods("GET")

	protected.HandleFunc("/stats", handlers.GetStatsHandler(statsSvc)).Methods("GET")

	return router
}
