/*
Package config loads the engine configuration from YAML with
environment-variable overrides.

PURPOSE:
  One Config struct covers the server, storage, grant rules, and
  scheduler cadence. Defaults are always valid, so a missing file is
  not an error: Load falls back to Default() and still applies
  LEAVE_* environment overrides.

OVERRIDES:
  LEAVE_LISTEN_ADDR     server.listen_addr
  LEAVE_DB_PATH         database.path
  LEAVE_LOG_LEVEL       logging.level
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/leave-engine/leave"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Grant     GrantConfig     `yaml:"grant"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type GrantConfig struct {
	AttendanceThreshold float64       `yaml:"attendance_threshold"`
	ExpiryYears         int           `yaml:"expiry_years"`
	DefaultWeeklyDays   int           `yaml:"default_weekly_days"`
	LockWait            time.Duration `yaml:"lock_wait"`
	IntegrityEpsilon    float64       `yaml:"integrity_epsilon"`
	LowBalanceThreshold float64       `yaml:"low_balance_threshold"`
}

type SchedulerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	SixMonthInterval    time.Duration `yaml:"six_month_interval"`
	AnnualInterval      time.Duration `yaml:"annual_interval"`
	MaintenanceInterval time.Duration `yaml:"maintenance_interval"`
	WarningLeadDays     []int         `yaml:"warning_lead_days"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns a configuration that works out of the box.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/leave.db",
		},
		Grant: GrantConfig{
			AttendanceThreshold: 0.8,
			ExpiryYears:         2,
			DefaultWeeklyDays:   5,
			LockWait:            3 * time.Second,
			IntegrityEpsilon:    0.01,
			LowBalanceThreshold: 5,
		},
		Scheduler: SchedulerConfig{
			Enabled:             true,
			SweepInterval:       24 * time.Hour,
			SixMonthInterval:    24 * time.Hour,
			AnnualInterval:      24 * time.Hour,
			MaintenanceInterval: 24 * time.Hour,
			WarningLeadDays:     []int{90, 30},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path, overlaying it on the defaults.
// An empty path or a missing file yields the defaults. Environment
// overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LEAVE_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("LEAVE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LEAVE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Grant.AttendanceThreshold < 0 || c.Grant.AttendanceThreshold > 1 {
		return fmt.Errorf("grant.attendance_threshold must be within [0, 1], got %v", c.Grant.AttendanceThreshold)
	}
	if c.Grant.ExpiryYears <= 0 {
		return fmt.Errorf("grant.expiry_years must be positive, got %d", c.Grant.ExpiryYears)
	}
	if c.Grant.DefaultWeeklyDays < 1 || c.Grant.DefaultWeeklyDays > 5 {
		return fmt.Errorf("grant.default_weekly_days must be within [1, 5], got %d", c.Grant.DefaultWeeklyDays)
	}
	if c.Grant.LockWait <= 0 {
		return fmt.Errorf("grant.lock_wait must be positive, got %v", c.Grant.LockWait)
	}
	for _, lead := range c.Scheduler.WarningLeadDays {
		if lead <= 0 {
			return fmt.Errorf("scheduler.warning_lead_days entries must be positive, got %d", lead)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// LeaveConfig converts the grant rules into the engine's Config shape.
func (c Config) LeaveConfig() leave.Config {
	return leave.Config{
		AttendanceThreshold:   c.Grant.AttendanceThreshold,
		ExpiryYears:           c.Grant.ExpiryYears,
		DefaultWeeklyWorkDays: c.Grant.DefaultWeeklyDays,
		LockWait:              c.Grant.LockWait,
		IntegrityEpsilon:      c.Grant.IntegrityEpsilon,
		LowBalanceThreshold:   c.Grant.LowBalanceThreshold,
	}
}
