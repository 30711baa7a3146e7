package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full agent configuration. Values are resolved in order:
// built-in defaults, YAML config file, environment, command-line flags.
type Config struct {
	WatchPaths    []string `yaml:"watch_paths"`
	QuarantineDir string   `yaml:"quarantine_dir"`
	DatabasePath  string   `yaml:"database_path"`

	PolicyMode string `yaml:"policy_mode"` // block or warn
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	ScanMaxBytes   int64         `yaml:"scan_max_bytes"`
	MaxIOPerSecond int           `yaml:"max_io_per_second"`
	Workers        int           `yaml:"workers"`
	EventQueueSize int           `yaml:"event_queue_size"`
	DedupTTL       time.Duration `yaml:"dedup_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	ScanEvery      time.Duration `yaml:"scan_every"` // 0 disables periodic full scans
	MaxAlerts      int           `yaml:"max_alerts"`

	StabilityProbes int           `yaml:"stability_probes"`
	StabilityDelay  time.Duration `yaml:"stability_delay"`

	IncludeRules   []string          `yaml:"include_rules"`
	ExcludeRules   []string          `yaml:"exclude_rules"`
	CustomPatterns map[string]string `yaml:"custom_patterns"`

	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt
	JWTSecret         string `yaml:"-"`
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() *Config {
	return &Config{
		WatchPaths:      []string{},
		QuarantineDir:   "quarantine",
		DatabasePath:    "vigil.db",
		PolicyMode:      "block",
		ListenAddr:      "127.0.0.1:8787",
		LogLevel:        "info",
		ScanMaxBytes:    5 * 1024 * 1024,
		MaxIOPerSecond:  0,
		Workers:         4,
		EventQueueSize:  256,
		DedupTTL:        10 * time.Second,
		SweepInterval:   time.Minute,
		ScanEvery:       0,
		MaxAlerts:       200,
		StabilityProbes: 6,
		StabilityDelay:  250 * time.Millisecond,
		CustomPatterns:  map[string]string{},
		AdminUser:       "admin",
	}
}

// Load builds the configuration from flags, optional YAML file and environment.
func Load() (*Config, error) {
	cfg := Defaults()

	configFile := flag.String("config", "", "Path to YAML configuration file (default: none).")
	watch := flag.String("watch", "", "Comma-separated list of directories to watch.")
	quarantineDir := flag.String("quarantine-dir", cfg.QuarantineDir, "Quarantine directory.")
	dbPath := flag.String("db", cfg.DatabasePath, "Path to the SQLite state database.")
	policyMode := flag.String("policy", cfg.PolicyMode, "Initial policy mode: block or warn.")
	listenAddr := flag.String("listen", cfg.ListenAddr, "Control API listen address.")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, or error.")
	workers := flag.Int("workers", cfg.Workers, "Number of pipeline workers.")
	scanEvery := flag.Duration("scan-every", cfg.ScanEvery, "Interval for periodic full scans (0 disables).")
	flag.Parse()

	if *configFile != "" {
		if err := cfg.loadFromFile(*configFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "watch":
			cfg.WatchPaths = parseCommaSeparated(*watch)
		case "quarantine-dir":
			cfg.QuarantineDir = *quarantineDir
		case "db":
			cfg.DatabasePath = *dbPath
		case "policy":
			cfg.PolicyMode = strings.ToLower(*policyMode)
		case "listen":
			cfg.ListenAddr = *listenAddr
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevel)
		case "workers":
			cfg.Workers = *workers
		case "scan-every":
			cfg.ScanEvery = *scanEvery
		}
	})

	if env := os.Getenv("VIGIL_WATCH_PATHS"); env != "" && len(cfg.WatchPaths) == 0 {
		cfg.WatchPaths = parseCommaSeparated(env)
	}
	cfg.JWTSecret = os.Getenv("VIGIL_JWT_SECRET")
	if env := os.Getenv("VIGIL_ADMIN_PASSWORD_HASH"); env != "" {
		cfg.AdminPasswordHash = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency. Paths are normalized
// to absolute form as a side effect.
func (cfg *Config) Validate() error {
	if len(cfg.WatchPaths) == 0 {
		return fmt.Errorf("at least one watch path must be configured")
	}
	for i, p := range cfg.WatchPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("invalid watch path %q: %w", p, err)
		}
		cfg.WatchPaths[i] = abs
	}
	abs, err := filepath.Abs(cfg.QuarantineDir)
	if err != nil {
		return fmt.Errorf("invalid quarantine dir %q: %w", cfg.QuarantineDir, err)
	}
	cfg.QuarantineDir = abs

	if cfg.PolicyMode != "block" && cfg.PolicyMode != "warn" {
		return fmt.Errorf("invalid policy mode: %s", cfg.PolicyMode)
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if cfg.EventQueueSize <= 0 {
		return fmt.Errorf("event queue size must be positive")
	}
	if cfg.ScanMaxBytes <= 0 {
		return fmt.Errorf("scan-max-bytes must be positive")
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.DedupTTL <= 0 {
		return fmt.Errorf("dedup TTL must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	if cfg.ScanEvery < 0 {
		return fmt.Errorf("scan-every must be zero or positive")
	}
	if cfg.MaxAlerts <= 0 {
		return fmt.Errorf("max-alerts must be positive")
	}
	if cfg.StabilityProbes <= 0 {
		return fmt.Errorf("stability probes must be positive")
	}
	if cfg.StabilityDelay <= 0 {
		return fmt.Errorf("stability delay must be positive")
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
