package server

import (
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"rawhttp/pkg/http"
)

// Environment variables that override Config fields.
const (
	EnvAddr        = "RAWHTTP_ADDR"
	EnvDirectory   = "RAWHTTP_DIRECTORY"
	EnvLogLevel    = "RAWHTTP_LOG_LEVEL"
	EnvIdleTimeout = "RAWHTTP_IDLE_TIMEOUT"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "0.0.0.0:4221"

// Config holds server configuration. Zero fields take defaults in New.
type Config struct {
	Addr         string
	Directory    string // root of the file store; empty keeps files in memory
	LogLevel     string
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	MaxLineBytes int
	MaxBodyBytes int64

	// CompressionLevel is a gzip level; 0 means gzip.DefaultCompression.
	CompressionLevel int

	Logger zerolog.Logger
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Addr:             DefaultAddr,
		LogLevel:         zerolog.InfoLevel.String(),
		IdleTimeout:      http.DefaultIdleTimeout,
		WriteTimeout:     http.DefaultWriteTimeout,
		MaxLineBytes:     http.DefaultMaxLineBytes,
		MaxBodyBytes:     http.DefaultMaxBodyBytes,
		CompressionLevel: gzip.DefaultCompression,
		Logger:           zerolog.Nop(),
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = d.MaxLineBytes
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.CompressionLevel == 0 {
		c.CompressionLevel = d.CompressionLevel
	}
}

// ApplyEnv overrides fields from the environment. getenv is usually
// os.Getenv; unset or empty variables leave the field alone.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := getenv(EnvDirectory); v != "" {
		c.Directory = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getenv(EnvIdleTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIdleTimeout, err)
		}
		c.IdleTimeout = d
	}
	return nil
}

// parseDuration accepts Go durations ("30s") and bare seconds ("30").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
