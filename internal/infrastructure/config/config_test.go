package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.FrameInterval() != 100*time.Millisecond || cfg.JPEGQuality != 50 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CaptureInterval() != cfg.FrameInterval() {
		t.Fatalf("capture interval should follow frame interval")
	}
	if cfg.SessionPolicy != PolicyEvict {
		t.Fatalf("default policy %q", cfg.SessionPolicy)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FRAME_INTERVAL_MS", "250")
	t.Setenv("CAPTURE_INTERVAL_MS", "50")
	t.Setenv("CAPTURE_SOURCE", "ADB")
	t.Setenv("SESSION_POLICY", "reject")
	t.Setenv("HISTORY_TTL", "30m")
	t.Setenv("JPEG_QUALITY", "not-a-number")

	cfg := FromEnv()
	if cfg.Addr != ":9000" {
		t.Fatalf("PORT not applied: %q", cfg.Addr)
	}
	if cfg.FrameInterval() != 250*time.Millisecond || cfg.CaptureInterval() != 50*time.Millisecond {
		t.Fatalf("intervals %v %v", cfg.FrameInterval(), cfg.CaptureInterval())
	}
	if cfg.CaptureSource != SourceADB || cfg.SessionPolicy != PolicyReject || cfg.HistoryTTL != 30*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.JPEGQuality != 50 {
		t.Fatalf("bad int should keep default, got %d", cfg.JPEGQuality)
	}
}

func TestAddrWinsOverPort(t *testing.T) {
	t.Setenv("ADDR", "127.0.0.1:7000")
	t.Setenv("PORT", "9000")
	if cfg := FromEnv(); cfg.Addr != "127.0.0.1:7000" {
		t.Fatalf("ADDR should win, got %q", cfg.Addr)
	}
}

func TestLoadMergesYAMLUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "screencast.yaml")
	yaml := "addr: \":9100\"\njpeg_quality: 70\ncapture_source: synthetic\nsynthetic_width: 320\ninput_backend: adb\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JPEG_QUALITY", "90")
	// keep a stray .env in the working directory out of the picture
	wd, _ := os.Getwd()
	_ = os.Chdir(dir)
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9100" || cfg.CaptureSource != SourceSynthetic || cfg.SyntheticWidth != 320 || cfg.InputBackend != BackendADB {
		t.Fatalf("yaml not merged: %+v", cfg)
	}
	if cfg.JPEGQuality != 90 {
		t.Fatalf("env should override yaml, got %d", cfg.JPEGQuality)
	}
	if cfg.SyntheticHeight != 1280 {
		t.Fatalf("unset yaml key should keep default, got %d", cfg.SyntheticHeight)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DISPATCH_QUEUE=7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DISPATCH_QUEUE", "")
	os.Unsetenv("DISPATCH_QUEUE")
	wd, _ := os.Getwd()
	_ = os.Chdir(dir)
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DispatchQueue != 7 {
		t.Fatalf(".env value not applied, got %d", cfg.DispatchQueue)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.FrameIntervalMs = 0
	cfg.JPEGQuality = 101
	cfg.CaptureSource = "vnc"
	cfg.SessionPolicy = "share"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"frame interval", "jpeg quality", "capture source", "session policy"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("missing %q in %v", want, err)
		}
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("missing config file accepted")
	}
}
