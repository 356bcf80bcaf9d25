// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for chime.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Storage     StorageConfig     `yaml:"storage"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Tracing     TracingConfig     `yaml:"tracing"`

	// Commands maps job names to shell commands run when the job fires.
	// Jobs without a mapping just log the firing.
	Commands map[string]string `yaml:"commands,omitempty"`
}

// SchedulerConfig controls the scan loop and execution history.
type SchedulerConfig struct {
	// ScanPeriod is the interval between due-job scans. Defaults to 10s.
	ScanPeriod Duration `yaml:"scan_period"`

	// RunTimeout caps a single job execution. Zero means unbounded.
	RunTimeout Duration `yaml:"run_timeout"`

	// HistorySize is the in-memory execution log retention. Defaults to 10.
	HistorySize int `yaml:"history_size"`
}

// GatewayConfig controls the HTTP surface.
type GatewayConfig struct {
	// Bind is the listen address. Defaults to 127.0.0.1:8356.
	Bind string `yaml:"bind"`

	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// StorageConfig controls the durable store.
type StorageConfig struct {
	// Path is the sqlite database file. Empty disables persistence:
	// jobs and history live in memory only.
	Path string `yaml:"path"`
}

// MaintenanceConfig controls background housekeeping.
type MaintenanceConfig struct {
	// Enabled turns the housekeeping scheduler on. Only meaningful when
	// storage is configured. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// PruneSchedule is a 5-field cron expression for pruning old execution
	// rows. Defaults to hourly.
	PruneSchedule string `yaml:"prune_schedule"`

	// CheckpointSchedule is a 5-field cron expression for WAL truncation.
	// Defaults to 03:30 daily.
	CheckpointSchedule string `yaml:"checkpoint_schedule"`

	// DBRetention is how long execution rows are kept. Defaults to 720h.
	DBRetention Duration `yaml:"db_retention"`
}

// TracingConfig controls the OTLP trace exporter.
type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint string `yaml:"endpoint"`
}

// Defaults applied by Normalize.
const (
	DefaultBind        = "127.0.0.1:8356"
	DefaultScanPeriod  = 10 * time.Second
	DefaultHistorySize = 10
	DefaultDBRetention = 30 * 24 * time.Hour
	DefaultHTTPTimeout = 15 * time.Second
)

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Scheduler.ScanPeriod <= 0 {
		c.Scheduler.ScanPeriod = Duration(DefaultScanPeriod)
	}
	if c.Scheduler.HistorySize <= 0 {
		c.Scheduler.HistorySize = DefaultHistorySize
	}
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = DefaultBind
	}
	if c.Gateway.ReadTimeout <= 0 {
		c.Gateway.ReadTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.Gateway.WriteTimeout <= 0 {
		c.Gateway.WriteTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.Maintenance.Enabled == nil {
		enabled := true
		c.Maintenance.Enabled = &enabled
	}
	if c.Maintenance.DBRetention <= 0 {
		c.Maintenance.DBRetention = Duration(DefaultDBRetention)
	}
}
