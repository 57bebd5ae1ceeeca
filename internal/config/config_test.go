package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Vision.Model != defaultVisionModel {
		t.Fatalf("vision model = %q, want default", cfg.Vision.Model)
	}
	if cfg.Workflow.VideoCap != 5 {
		t.Fatalf("video cap = %d, want 5", cfg.Workflow.VideoCap)
	}
	if !cfg.Workflow.CleanupWorkDirs {
		t.Fatal("expected cleanup_work_dirs default true")
	}
}

func TestLoadParsesAndNormalizesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[workflow]
video_cap = 2
poll_interval = 3

[translate]
source_language = " JA "
target_language = "en"

[vision]
api_key = "  key-with-space  "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Workflow.VideoCap != 2 {
		t.Fatalf("video cap = %d, want 2", cfg.Workflow.VideoCap)
	}
	if cfg.Translate.SourceLanguage != "ja" {
		t.Fatalf("source language = %q, want ja", cfg.Translate.SourceLanguage)
	}
	if cfg.Vision.APIKey != "key-with-space" {
		t.Fatalf("vision api key = %q, want trimmed", cfg.Vision.APIKey)
	}
}

func TestLoadRejectsUnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[translate]
source_language = "xx"
target_language = "en"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if !strings.Contains(err.Error(), "xx") {
		t.Fatalf("error should name the language: %v", err)
	}
}

func TestLoadRejectsIdenticalLanguagePair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[translate]
source_language = "en"
target_language = "en"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for identical language pair")
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"quality above one", func(c *Config) { c.ImageEdit.MinQuality = 1.5 }},
		{"negative video cap", func(c *Config) { c.Workflow.VideoCap = -1 }},
		{"zero poll interval", func(c *Config) { c.Workflow.PollInterval = 0 }},
		{"region percent too high", func(c *Config) { c.OCR.MinRegionPercent = 100 }},
		{"opacity above one", func(c *Config) { c.Overlay.PlateOpacity = 1.2 }},
		{"mix volume above one", func(c *Config) { c.Separation.MixVolume = 1.5 }},
		{"empty work dir", func(c *Config) { c.Paths.WorkDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnvFallbackForAPIKeys(t *testing.T) {
	t.Setenv("REDUB_VISION_API_KEY", "from-env")
	t.Setenv("REDUB_TTS_API_KEY", "tts-env")

	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vision.APIKey != "from-env" {
		t.Fatalf("vision api key = %q, want env fallback", cfg.Vision.APIKey)
	}
	if cfg.TTS.APIKey != "tts-env" {
		t.Fatalf("tts api key = %q, want env fallback", cfg.TTS.APIKey)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error on existing file")
	}
}
