// Package config loads the engine's INI configuration file (§6.1):
// sections SCHEDULER, DATABASE, LOGGING, API. Values are normalized
// before validation: NONE/blank become null, TRUE/FALSE become bool,
// numeric strings become numbers, everything else stays text.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	ini "gopkg.in/ini.v1"
)

type Config struct {
	Scheduler Scheduler
	Database  Database
	Logging   Logging
	API       API
}

type Scheduler struct {
	ControlParallelism   int `validate:"min=1,max=100"`
	RefreshIntervalSec   int `validate:"min=1"`
	MaintenanceIntervalSec int `validate:"min=1"`
	DatabaseReportIntervalSec int `validate:"min=1"`
	MetricsPort string
}

type Database struct {
	VendorName string `validate:"required,oneof=sqlite oracle"`
	DriverName string
	Host       string
	Port       int
	Path       string
	SID        string
	ServiceName string
	Username    string
	Password    string
	ClientPath  string

	MaxIdentifierLength int `validate:"min=1"`
	MaxOverflow         int
	PoolPrePing         bool
	PoolSize            int `validate:"min=1"`
	PoolRecycleSec      int
	PoolTimeoutSec      int
}

type Logging struct {
	Level string `validate:"required,oneof=debug info warn error"`
	Env   string `validate:"required,oneof=local staging production"`
}

type API struct {
	Host  string
	Port  string
	Token string `validate:"required"`
	MetricsPort string
}

// defaultConfigPath is ~/.rapo/rapo.ini, overridable via RAPO_CONFIG
// (open question #3 of spec.md §9: resolved in favor of overridable,
// since running more than one engine on a box needs distinct files).
func defaultConfigPath() (string, error) {
	if p := os.Getenv("RAPO_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".rapo", "rapo.ini"), nil
}

// Load reads and validates the configuration file. path == "" resolves to
// defaultConfigPath().
func Load(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load ini %s: %w", path, err)
	}

	cfg := &Config{}
	sec := file.Section("SCHEDULER")
	cfg.Scheduler.ControlParallelism = intOr(sec, "control_parallelism", 5, logger)
	cfg.Scheduler.RefreshIntervalSec = intOr(sec, "refresh_interval", 300, logger)
	cfg.Scheduler.MaintenanceIntervalSec = intOr(sec, "maintenance_interval", 3600, logger)
	cfg.Scheduler.DatabaseReportIntervalSec = intOr(sec, "database_report_interval", 60, logger)
	cfg.Scheduler.MetricsPort = strOrDefault(sec, "metrics_port", "9090")

	db := file.Section("DATABASE")
	cfg.Database.VendorName = strOrDeprecated(db, "vendor_name", "vendor", logger)
	cfg.Database.DriverName = str(db, "driver_name")
	cfg.Database.Host = str(db, "host")
	cfg.Database.Port = intOr(db, "port", 0, logger)
	cfg.Database.Path = str(db, "path")
	cfg.Database.SID = str(db, "sid")
	cfg.Database.ServiceName = strOrDeprecated(db, "service_name", "service", logger)
	cfg.Database.Username = strOrDeprecated(db, "username", "user", logger)
	cfg.Database.Password = str(db, "password")
	cfg.Database.ClientPath = str(db, "client_path")
	cfg.Database.MaxIdentifierLength = intOr(db, "max_identifier_length", 128, logger)
	cfg.Database.MaxOverflow = intOr(db, "max_overflow", 10, logger)
	cfg.Database.PoolPrePing = boolOr(db, "pool_pre_ping", true)
	cfg.Database.PoolSize = intOr(db, "pool_size", 5, logger)
	cfg.Database.PoolRecycleSec = intOr(db, "pool_recycle", 3600, logger)
	cfg.Database.PoolTimeoutSec = intOr(db, "pool_timeout", 30, logger)

	log := file.Section("LOGGING")
	cfg.Logging.Level = strOrDefault(log, "level", "info")
	cfg.Logging.Env = strOrDefault(log, "env", "local")

	api := file.Section("API")
	cfg.API.Host = str(api, "host")
	cfg.API.Port = strOrDefault(api, "port", "8080")
	cfg.API.Token = str(api, "token")
	cfg.API.MetricsPort = strOrDefault(api, "metrics_port", "9091")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SlogLevel converts Logging.Level into an slog.Level, falling back to
// info for an unrecognised name, mirroring the teacher's Config.SlogLevel
// helper.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// --- INI value normalization helpers ---

// normalize applies the NONE/blank -> "" and trims rule shared by every
// scalar reader below.
func normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func str(sec *ini.Section, key string) string {
	if !sec.HasKey(key) {
		return ""
	}
	return normalize(sec.Key(key).String())
}

func strOrDefault(sec *ini.Section, key, def string) string {
	if v := str(sec, key); v != "" {
		return v
	}
	return def
}

// strOrDeprecated reads key, falling back to a deprecated alias with a
// warning (§6.1: vendor, service, user -> vendor_name, service_name, username).
func strOrDeprecated(sec *ini.Section, key, deprecated string, logger *slog.Logger) string {
	if v := str(sec, key); v != "" {
		return v
	}
	if v := str(sec, deprecated); v != "" {
		if logger != nil {
			logger.Warn("config: using deprecated key, rename it", "deprecated", deprecated, "canonical", key)
		}
		return v
	}
	return ""
}

func intOr(sec *ini.Section, key string, def int, logger *slog.Logger) int {
	v := str(sec, key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		if logger != nil {
			logger.Warn("config: non-numeric value, using default", "key", key, "value", v, "default", def)
		}
		return def
	}
	return n
}

func boolOr(sec *ini.Section, key string, def bool) bool {
	v := str(sec, key)
	switch strings.ToUpper(v) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	default:
		return def
	}
}
