package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all regraph server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath              string `json:"db_path"`
	LogLevel            string `json:"log_level"`
	ConditionDialect    string `json:"condition_dialect"`
	MaintenanceSchedule string `json:"maintenance_schedule"`
	EventRetentionDays  int    `json:"event_retention_days"`
	SnapshotKeep        int    `json:"snapshot_keep"`
	Vacuum              bool   `json:"vacuum"`
}

func defaultConfig() Config {
	return Config{
		DBPath:              filepath.Join(regraphDir(), "regraph.db"),
		LogLevel:            "info",
		ConditionDialect:    "cel",
		MaintenanceSchedule: "0 3 * * *",
		EventRetentionDays:  30,
		SnapshotKeep:        20,
		Vacuum:              true,
	}
}

func regraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".regraph"
	}
	return filepath.Join(home, ".regraph")
}

func settingsPath() string {
	return filepath.Join(regraphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("REGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("REGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REGRAPH_CONDITION_DIALECT"); v != "" {
		cfg.ConditionDialect = v
	}
	if v := os.Getenv("REGRAPH_MAINTENANCE_SCHEDULE"); v != "" {
		cfg.MaintenanceSchedule = v
	}
	if v := os.Getenv("REGRAPH_EVENT_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EventRetentionDays = n
		}
	}
	if v := os.Getenv("REGRAPH_SNAPSHOT_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SnapshotKeep = n
		}
	}
	if v := os.Getenv("REGRAPH_VACUUM"); v != "" {
		cfg.Vacuum = v == "true" || v == "1"
	}

	return cfg
}
