package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 0.8, cfg.Grant.AttendanceThreshold)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9090"
grant:
  attendance_threshold: 0.75
  lock_wait: 5s
scheduler:
  enabled: false
  warning_lead_days: [60, 14]
logging:
  level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 0.75, cfg.Grant.AttendanceThreshold)
	assert.Equal(t, 5*time.Second, cfg.Grant.LockWait)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, []int{60, 14}, cfg.Scheduler.WarningLeadDays)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 2, cfg.Grant.ExpiryYears)
	assert.Equal(t, "./data/leave.db", cfg.Database.Path)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9090"
`)
	t.Setenv("LEAVE_LISTEN_ADDR", ":7070")
	t.Setenv("LEAVE_DB_PATH", "/tmp/override.db")
	t.Setenv("LEAVE_LOG_LEVEL", "warn")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	mutate := func(f func(*config.Config)) config.Config {
		cfg := config.Default()
		f(&cfg)
		return cfg
	}

	cases := []struct {
		name string
		cfg  config.Config
	}{
		{"empty listen addr", mutate(func(c *config.Config) { c.Server.ListenAddr = "" })},
		{"empty db path", mutate(func(c *config.Config) { c.Database.Path = "" })},
		{"threshold above one", mutate(func(c *config.Config) { c.Grant.AttendanceThreshold = 1.5 })},
		{"negative threshold", mutate(func(c *config.Config) { c.Grant.AttendanceThreshold = -0.1 })},
		{"zero expiry", mutate(func(c *config.Config) { c.Grant.ExpiryYears = 0 })},
		{"weekly days out of range", mutate(func(c *config.Config) { c.Grant.DefaultWeeklyDays = 7 })},
		{"zero lock wait", mutate(func(c *config.Config) { c.Grant.LockWait = 0 })},
		{"non-positive warning lead", mutate(func(c *config.Config) { c.Scheduler.WarningLeadDays = []int{90, 0} })},
		{"unknown log level", mutate(func(c *config.Config) { c.Logging.Level = "verbose" })},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}

	assert.NoError(t, config.Default().Validate())
}

func TestLeaveConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Grant.AttendanceThreshold = 0.9
	cfg.Grant.LockWait = time.Second

	rules := cfg.LeaveConfig()
	assert.Equal(t, 0.9, rules.AttendanceThreshold)
	assert.Equal(t, time.Second, rules.LockWait)
	assert.Equal(t, 2, rules.ExpiryYears)
	assert.Equal(t, 5, rules.DefaultWeeklyWorkDays)
}
