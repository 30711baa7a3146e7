package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/vigil-dlp/vigil/internal/api"
	"github.com/vigil-dlp/vigil/internal/auth"
	"github.com/vigil-dlp/vigil/internal/config"
	"github.com/vigil-dlp/vigil/internal/enforce"
	"github.com/vigil-dlp/vigil/internal/logging"
	"github.com/vigil-dlp/vigil/internal/patterns"
	"github.com/vigil-dlp/vigil/internal/scan"
	"github.com/vigil-dlp/vigil/internal/sched"
	"github.com/vigil-dlp/vigil/internal/store"
	"github.com/vigil-dlp/vigil/internal/watch"
)

func main() {
	// Missing .env is fine; the system environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	defer log.Sync()

	if cfg.AdminPasswordHash == "" {
		log.Fatal("admin_password_hash must be configured (bcrypt hash, config file or VIGIL_ADMIN_PASSWORD_HASH)")
	}
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "vigil_dev_secret"
		log.Warn("VIGIL_JWT_SECRET not set, using development secret")
	}

	set, err := patterns.Load(cfg.IncludeRules, cfg.ExcludeRules, cfg.CustomPatterns)
	if err != nil {
		log.Fatal("failed to load detection patterns", zap.Error(err))
	}
	log.Info("detection patterns loaded", zap.Strings("rules", set.Names()))

	db, err := store.Open(cfg.DatabasePath, logging.NewGormLogger(log, cfg.LogLevel))
	if err != nil {
		log.Fatal("failed to open state database", zap.Error(err))
	}

	ledger := store.NewAlertLedger(db, cfg.MaxAlerts)
	whitelist := store.NewWhitelist(db)
	quarantine := store.NewQuarantineStore(db)
	settings, err := store.LoadSettings(db, cfg.PolicyMode)
	if err != nil {
		log.Fatal("failed to load settings", zap.Error(err))
	}

	mover, err := enforce.NewMover(cfg.QuarantineDir, log)
	if err != nil {
		log.Fatal("quarantine root unusable", zap.Error(err))
	}
	engine := enforce.NewEngine(ledger, quarantine, whitelist, mover, log)

	dedup := scan.NewDedupCache(cfg.DedupTTL)
	pipeline := watch.NewPipeline(
		scan.NewStabilityGate(cfg.StabilityProbes, cfg.StabilityDelay),
		dedup,
		whitelist,
		scan.NewScanner(set, cfg.ScanMaxBytes, cfg.MaxIOPerSecond, log),
		engine,
		settings,
		mover.Root(),
		log,
	)

	watcher, err := watch.NewWatcher(cfg.WatchPaths, mover.Root(), cfg.EventQueueSize, log)
	if err != nil {
		log.Fatal("failed to set up filesystem watches", zap.Error(err))
	}
	go watcher.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := watch.NewPool(pipeline, cfg.Workers, log)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx, watcher.Events())
		close(poolDone)
	}()

	scheduler := sched.New(log)
	sweep := func() error {
		dedup.Sweep()
		return nil
	}
	if err := scheduler.ScheduleFunc("dedup-sweep", "@every "+cfg.SweepInterval.String(), sweep); err != nil {
		log.Fatal("failed to schedule dedup sweep", zap.Error(err))
	}
	if cfg.ScanEvery > 0 {
		fullScan := func() error {
			for _, root := range cfg.WatchPaths {
				if _, err := pipeline.ScanTree(ctx, root); err != nil {
					return err
				}
			}
			return nil
		}
		if err := scheduler.ScheduleFunc("periodic-scan", "@every "+cfg.ScanEvery.String(), fullScan); err != nil {
			log.Fatal("failed to schedule periodic scan", zap.Error(err))
		}
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	authSvc := auth.NewService(cfg.AdminUser, cfg.AdminPasswordHash, secret)
	router := api.Router(api.Deps{
		Auth:       authSvc,
		Ledger:     ledger,
		Engine:     engine,
		Whitelist:  whitelist,
		Quarantine: quarantine,
		Settings:   settings,
		Pipeline:   pipeline,
		WatchPaths: cfg.WatchPaths,
	})
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		log.Info("control API listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("control API failed", zap.Error(err))
		}
	}()

	log.Info("vigil agent started",
		zap.Strings("watch_paths", cfg.WatchPaths),
		zap.String("quarantine_dir", mover.Root()),
		zap.String("policy_mode", settings.PolicyMode()),
		zap.Int("workers", cfg.Workers))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("control API shutdown incomplete", zap.Error(err))
	}
	if err := scheduler.Stop(); err != nil {
		log.Warn("scheduler stop failed", zap.Error(err))
	}
	watcher.Close()
	cancel()
	select {
	case <-poolDone:
	case <-time.After(10 * time.Second):
		log.Warn("pipeline workers did not drain in time")
	}
	log.Info("vigil agent stopped")
}
