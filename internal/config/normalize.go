package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServices()
	c.normalizeTranslate()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServices() {
	c.OCR.Endpoint = strings.TrimSpace(c.OCR.Endpoint)
	c.OCR.APIKey = firstConfigured(c.OCR.APIKey, "REDUB_OCR_API_KEY")

	c.Vision.APIKey = firstConfigured(c.Vision.APIKey, "REDUB_VISION_API_KEY", "OPENROUTER_API_KEY")
	c.Vision.BaseURL = strings.TrimSpace(c.Vision.BaseURL)
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = defaultVisionBaseURL
	}
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	if c.Vision.Model == "" {
		c.Vision.Model = defaultVisionModel
	}

	c.ImageEdit.APIKey = firstConfigured(c.ImageEdit.APIKey, "REDUB_IMAGE_EDIT_API_KEY")
	c.ImageEdit.BaseURL = strings.TrimSpace(c.ImageEdit.BaseURL)
	if c.ImageEdit.BaseURL == "" {
		c.ImageEdit.BaseURL = defaultImageEditBaseURL
	}
	if c.ImageEdit.MaxAttempts <= 0 {
		c.ImageEdit.MaxAttempts = 2
	}

	c.Transcribe.APIKey = firstConfigured(c.Transcribe.APIKey, "REDUB_TRANSCRIBE_API_KEY", "OPENAI_API_KEY")
	c.Transcribe.BaseURL = strings.TrimSpace(c.Transcribe.BaseURL)
	if c.Transcribe.BaseURL == "" {
		c.Transcribe.BaseURL = defaultTranscribeBaseURL
	}
	if c.Transcribe.MaxUploadMB <= 0 {
		c.Transcribe.MaxUploadMB = 25
	}
	if c.Transcribe.RetryAttempts <= 0 {
		c.Transcribe.RetryAttempts = 3
	}

	c.TTS.APIKey = firstConfigured(c.TTS.APIKey, "REDUB_TTS_API_KEY", "ELEVENLABS_API_KEY")
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.VoiceID = strings.TrimSpace(c.TTS.VoiceID)

	c.Separation.Command = strings.TrimSpace(c.Separation.Command)
	if c.Separation.Command == "" {
		c.Separation.Command = defaultSeparationCommand
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeTranslate() {
	c.Translate.SourceLanguage = strings.ToLower(strings.TrimSpace(c.Translate.SourceLanguage))
	c.Translate.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translate.TargetLanguage))
	if c.Translate.WordsPerSecond <= 0 {
		c.Translate.WordsPerSecond = 2.5
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func firstConfigured(value string, envKeys ...string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
