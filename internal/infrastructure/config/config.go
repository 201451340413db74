package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceScreenshot = "screenshot"
	SourceADB        = "adb"
	SourceSynthetic  = "synthetic"

	BackendSu  = "su"
	BackendADB = "adb"
	BackendLog = "log"

	PolicyEvict  = "evict"
	PolicyReject = "reject"
)

type Config struct {
	Addr            string `yaml:"addr"`
	LogLevel        string `yaml:"log_level"`
	CORSAllowOrigin string `yaml:"cors_allow_origin"`

	// Streaming
	FrameIntervalMs   int `yaml:"frame_interval_ms"`
	JPEGQuality       int `yaml:"jpeg_quality"`
	WriteTimeoutMs    int `yaml:"write_timeout_ms"`
	CaptureIntervalMs int `yaml:"capture_interval_ms"` // 0 follows FrameIntervalMs

	// Capture surface
	CaptureSource    string `yaml:"capture_source"`
	DisplayIndex     int    `yaml:"display_index"`
	SyntheticWidth   int    `yaml:"synthetic_width"`
	SyntheticHeight  int    `yaml:"synthetic_height"`
	SyntheticPadding int    `yaml:"synthetic_padding"` // extra bytes per row

	// Android tooling
	ADBPath   string `yaml:"adb_path"`
	ADBSerial string `yaml:"adb_serial"`
	SuPath    string `yaml:"su_path"`

	// Input injection
	InputBackend  string `yaml:"input_backend"`
	DispatchQueue int    `yaml:"dispatch_queue"`

	// Session ownership: "evict" replaces the active viewer, "reject" refuses newcomers.
	SessionPolicy string `yaml:"session_policy"`

	// Session history (served on /api/sessions)
	HistoryMax int           `yaml:"history_max"`
	HistoryTTL time.Duration `yaml:"history_ttl"`
}

func Defaults() Config {
	return Config{
		Addr:             ":8080",
		LogLevel:         "info",
		CORSAllowOrigin:  "*",
		FrameIntervalMs:  100,
		JPEGQuality:      50,
		WriteTimeoutMs:   2000,
		CaptureSource:    SourceScreenshot,
		SyntheticWidth:   720,
		SyntheticHeight:  1280,
		SyntheticPadding: 64,
		ADBPath:          "adb",
		SuPath:           "su",
		InputBackend:     BackendLog,
		DispatchQueue:    64,
		SessionPolicy:    PolicyEvict,
		HistoryMax:       100,
		HistoryTTL:       2 * time.Hour,
	}
}

// Load reads an optional .env file, then the YAML file named by CONFIG_FILE,
// then lets environment variables override both.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a config from defaults and environment only.
func FromEnv() Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("ADDR", c.Addr)
	// PORT is the short form most operators reach for
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" && os.Getenv("ADDR") == "" {
		c.Addr = ":" + p
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.CORSAllowOrigin = getEnv("CORS_ALLOW_ORIGIN", c.CORSAllowOrigin)
	c.FrameIntervalMs = getEnvInt("FRAME_INTERVAL_MS", c.FrameIntervalMs)
	c.JPEGQuality = getEnvInt("JPEG_QUALITY", c.JPEGQuality)
	c.WriteTimeoutMs = getEnvInt("WRITE_TIMEOUT_MS", c.WriteTimeoutMs)
	c.CaptureIntervalMs = getEnvInt("CAPTURE_INTERVAL_MS", c.CaptureIntervalMs)
	c.CaptureSource = strings.ToLower(getEnv("CAPTURE_SOURCE", c.CaptureSource))
	c.DisplayIndex = getEnvInt("DISPLAY_INDEX", c.DisplayIndex)
	c.SyntheticWidth = getEnvInt("SYNTHETIC_WIDTH", c.SyntheticWidth)
	c.SyntheticHeight = getEnvInt("SYNTHETIC_HEIGHT", c.SyntheticHeight)
	c.SyntheticPadding = getEnvInt("SYNTHETIC_PADDING", c.SyntheticPadding)
	c.ADBPath = getEnv("ADB_PATH", c.ADBPath)
	c.ADBSerial = getEnv("ADB_SERIAL", c.ADBSerial)
	c.SuPath = getEnv("SU_PATH", c.SuPath)
	c.InputBackend = strings.ToLower(getEnv("INPUT_BACKEND", c.InputBackend))
	c.DispatchQueue = getEnvInt("DISPATCH_QUEUE", c.DispatchQueue)
	c.SessionPolicy = strings.ToLower(getEnv("SESSION_POLICY", c.SessionPolicy))
	c.HistoryMax = getEnvInt("HISTORY_MAX", c.HistoryMax)
	if v := os.Getenv("HISTORY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HistoryTTL = d
		}
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.FrameIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("frame interval must be positive, got %d", c.FrameIntervalMs))
	}
	if c.CaptureIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("capture interval must not be negative, got %d", c.CaptureIntervalMs))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be in [1,100], got %d", c.JPEGQuality))
	}
	if c.DispatchQueue <= 0 {
		errs = append(errs, fmt.Errorf("dispatch queue must be positive, got %d", c.DispatchQueue))
	}
	switch c.CaptureSource {
	case SourceScreenshot, SourceADB:
	case SourceSynthetic:
		if c.SyntheticWidth <= 0 || c.SyntheticHeight <= 0 || c.SyntheticPadding < 0 {
			errs = append(errs, fmt.Errorf("invalid synthetic geometry %dx%d+%d", c.SyntheticWidth, c.SyntheticHeight, c.SyntheticPadding))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown capture source %q", c.CaptureSource))
	}
	switch c.InputBackend {
	case BackendSu, BackendADB, BackendLog:
	default:
		errs = append(errs, fmt.Errorf("unknown input backend %q", c.InputBackend))
	}
	switch c.SessionPolicy {
	case PolicyEvict, PolicyReject:
	default:
		errs = append(errs, fmt.Errorf("unknown session policy %q", c.SessionPolicy))
	}
	return errors.Join(errs...)
}

func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

func (c Config) CaptureInterval() time.Duration {
	if c.CaptureIntervalMs > 0 {
		return time.Duration(c.CaptureIntervalMs) * time.Millisecond
	}
	return c.FrameInterval()
}

func (c Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
