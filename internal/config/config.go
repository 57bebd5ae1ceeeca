package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Workflow contains queue-drain behavior configuration.
type Workflow struct {
	// VideoCap bounds how many videos a single run may dub. Zero disables the cap.
	VideoCap int `toml:"video_cap"`
	// PollInterval is the idle wait between queue polls, in seconds.
	PollInterval int `toml:"poll_interval"`
	// CleanupWorkDirs removes per-item working directories after completion.
	CleanupWorkDirs bool `toml:"cleanup_work_dirs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// OCR configures the document text detection service.
type OCR struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
	// MinRegionPercent is the dimension threshold below which a detected
	// region is discarded as a watermark or timestamp. A region is dropped
	// only when both width and height fall under it.
	MinRegionPercent float64 `toml:"min_region_percent"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
}

// Vision configures the generative vision/classification service shared by the
// overlay classifier, edit validator, and segment translator.
type Vision struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// BatchSize is the maximum number of text blocks classified per call
	// before the classifier falls back to fixed-size batches.
	BatchSize int `toml:"batch_size"`
}

// ImageEdit configures the generative image-edit service.
type ImageEdit struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxAttempts    int     `toml:"max_attempts"`
	MinQuality     float64 `toml:"min_quality"`
}

// Overlay configures the deterministic text-overlay compositor.
type Overlay struct {
	MinFontSize  int     `toml:"min_font_size"`
	PaddingPx    int     `toml:"padding_px"`
	PlateOpacity float64 `toml:"plate_opacity"`
}

// Transcribe configures the speech-to-text service.
type Transcribe struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxUploadMB    int    `toml:"max_upload_mb"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// Translate configures segment translation behavior.
type Translate struct {
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	// WordsPerSecond derives the per-segment word ceiling from segment
	// duration, keeping synthesized audio close to the original slot.
	WordsPerSecond float64 `toml:"words_per_second"`
}

// TTS configures the text-to-speech service.
type TTS struct {
	APIKey     string  `toml:"api_key"`
	BaseURL    string  `toml:"base_url"`
	VoiceID    string  `toml:"voice_id"`
	Stability  float64 `toml:"stability"`
	Similarity float64 `toml:"similarity"`
	// RequestIntervalMS paces sequential synthesis calls below the
	// provider's requests-per-second ceiling.
	RequestIntervalMS int `toml:"request_interval_ms"`
	TimeoutSeconds    int `toml:"timeout_seconds"`
}

// Separation configures optional vocal/background separation.
type Separation struct {
	Enabled bool   `toml:"enabled"`
	Command string `toml:"command"`
	// MixVolume attenuates the background track when mixing under dubbed
	// speech (0.0–1.0).
	MixVolume float64 `toml:"mix_volume"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for redub.
//
// Configuration sections by subsystem:
//   - Paths: working, output, and log directories
//   - Workflow: queue drain behavior and the video cap
//   - OCR: document text detection service
//   - Vision: generative vision/classification service
//   - ImageEdit: generative image-edit service
//   - Overlay: deterministic compositor rendering
//   - Transcribe: speech-to-text service
//   - Translate: language pair and word ceiling
//   - TTS: text-to-speech service and pacing
//   - Separation: optional vocal separation tool
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	OCR           OCR           `toml:"ocr"`
	Vision        Vision        `toml:"vision"`
	ImageEdit     ImageEdit     `toml:"image_edit"`
	Overlay       Overlay       `toml:"overlay"`
	Transcribe    Transcribe    `toml:"transcribe"`
	Translate     Translate     `toml:"translate"`
	TTS           TTS           `toml:"tts"`
	Separation    Separation    `toml:"separation"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/redub/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is the
// resolved path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("redub.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration file to the provided path,
// refusing to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath resolves a ~ prefix and returns an absolute path. An empty
// input stays empty.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
