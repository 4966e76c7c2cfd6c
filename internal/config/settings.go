// Package config loads the switchboard settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	ini "gopkg.in/ini.v1"
)

// Trail backends.
const (
	TrailMemory = "memory"
	TrailRedis  = "redis"
)

// Settings holds application configuration loaded from an INI file.
type Settings struct {
	logLevel      string
	logFile       string
	logMaxSizeMB  int
	logMaxBackups int

	metricsEnabled bool
	metricsAddr    string

	trailBackend  string
	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	trailTTL      time.Duration

	digitDelay time.Duration
	autoAnswer bool
}

// Load reads the settings file at path. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Parse(ini.Empty())
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Parse(ini.Empty())
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings %s: %w", path, err)
	}
	return Parse(cfg)
}

// Parse reads configuration from an ini file and validates it.
func Parse(cfg *ini.File) (*Settings, error) {
	s := &Settings{}

	sec := cfg.Section("logging")
	s.logLevel = sec.Key("level").MustString("info")
	s.logFile = sec.Key("file").String()
	s.logMaxSizeMB = sec.Key("max_size_mb").MustInt(100)
	s.logMaxBackups = sec.Key("max_backups").MustInt(3)

	sec = cfg.Section("metrics")
	s.metricsEnabled = sec.Key("enabled").MustBool(false)
	s.metricsAddr = sec.Key("addr").MustString(":2112")

	sec = cfg.Section("trail")
	s.trailBackend = sec.Key("backend").MustString(TrailMemory)
	s.redisAddr = sec.Key("redis_addr").MustString("localhost:6379")
	s.redisPassword = sec.Key("redis_password").String()
	s.redisDB = sec.Key("redis_db").MustInt(0)
	s.redisPrefix = sec.Key("redis_prefix").MustString("switchboard:")
	s.trailTTL = time.Duration(sec.Key("ttl_seconds").MustInt(86400)) * time.Second

	sec = cfg.Section("simulate")
	s.digitDelay = time.Duration(sec.Key("digit_delay_ms").MustInt(50)) * time.Millisecond
	s.autoAnswer = sec.Key("auto_answer").MustBool(true)

	if s.trailBackend != TrailMemory && s.trailBackend != TrailRedis {
		return nil, fmt.Errorf("trail backend must be %q or %q, got %q", TrailMemory, TrailRedis, s.trailBackend)
	}
	if s.trailTTL < 0 {
		return nil, fmt.Errorf("trail ttl_seconds must not be negative")
	}

	return s, nil
}

func (s *Settings) LogLevel() string   { return s.logLevel }
func (s *Settings) LogFile() string    { return s.logFile }
func (s *Settings) LogMaxSizeMB() int  { return s.logMaxSizeMB }
func (s *Settings) LogMaxBackups() int { return s.logMaxBackups }

func (s *Settings) MetricsEnabled() bool { return s.metricsEnabled }
func (s *Settings) MetricsAddr() string  { return s.metricsAddr }

func (s *Settings) TrailBackend() string    { return s.trailBackend }
func (s *Settings) RedisAddr() string       { return s.redisAddr }
func (s *Settings) RedisPassword() string   { return s.redisPassword }
func (s *Settings) RedisDB() int            { return s.redisDB }
func (s *Settings) RedisPrefix() string     { return s.redisPrefix }
func (s *Settings) TrailTTL() time.Duration { return s.trailTTL }

func (s *Settings) DigitDelay() time.Duration { return s.digitDelay }
func (s *Settings) AutoAnswer() bool          { return s.autoAnswer }
