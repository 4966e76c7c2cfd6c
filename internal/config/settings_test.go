package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ini "gopkg.in/ini.v1"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)

	assert.Equal(t, "info", s.LogLevel())
	assert.Empty(t, s.LogFile())
	assert.False(t, s.MetricsEnabled())
	assert.Equal(t, ":2112", s.MetricsAddr())
	assert.Equal(t, TrailMemory, s.TrailBackend())
	assert.Equal(t, 24*time.Hour, s.TrailTTL())
	assert.Equal(t, 50*time.Millisecond, s.DigitDelay())
	assert.True(t, s.AutoAnswer())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchboard.ini")
	content := `
[logging]
level = debug
file = /var/log/switchboard.log
max_size_mb = 10

[metrics]
enabled = true
addr = :9100

[trail]
backend = redis
redis_addr = redis:6379
redis_db = 2
ttl_seconds = 60

[simulate]
digit_delay_ms = 5
auto_answer = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.LogLevel())
	assert.Equal(t, "/var/log/switchboard.log", s.LogFile())
	assert.Equal(t, 10, s.LogMaxSizeMB())
	assert.Equal(t, 3, s.LogMaxBackups())
	assert.True(t, s.MetricsEnabled())
	assert.Equal(t, ":9100", s.MetricsAddr())
	assert.Equal(t, TrailRedis, s.TrailBackend())
	assert.Equal(t, "redis:6379", s.RedisAddr())
	assert.Equal(t, 2, s.RedisDB())
	assert.Equal(t, "switchboard:", s.RedisPrefix())
	assert.Equal(t, time.Minute, s.TrailTTL())
	assert.Equal(t, 5*time.Millisecond, s.DigitDelay())
	assert.False(t, s.AutoAnswer())
}

func TestParse_InvalidBackend(t *testing.T) {
	cfg := ini.Empty()
	cfg.Section("trail").Key("backend").SetValue("postgres")

	_, err := Parse(cfg)
	assert.ErrorContains(t, err, "postgres")
}
