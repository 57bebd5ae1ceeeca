// Package testsupport provides shared helpers for package tests: temp-dir
// configs, queue stores with cleanup, and fixture files.
package testsupport

import (
	"path/filepath"
	"testing"

	"redub/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Vision.APIKey = "test"
	cfg.OCR.Endpoint = "http://127.0.0.1:0/ocr"
	cfg.ImageEdit.APIKey = "test"
	cfg.Transcribe.APIKey = "test"
	cfg.TTS.APIKey = "test"
	cfg.TTS.VoiceID = "test-voice"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithVideoCap sets the per-run video cap on the test config.
func WithVideoCap(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.VideoCap = limit
	}
}

// WithCleanupWorkDirs toggles per-item work directory removal.
func WithCleanupWorkDirs(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.CleanupWorkDirs = enabled
	}
}
