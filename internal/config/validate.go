package config

import (
	"errors"
	"fmt"

	"redub/internal/language"
)

// Validate ensures the configuration is usable. Missing credentials are
// systemic errors: the pipeline fails fast here rather than mid-item.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateImageEdit(); err != nil {
		return err
	}
	if err := c.validateOverlay(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateSeparation(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.VideoCap < 0 {
		return errors.New("workflow.video_cap must not be negative")
	}
	if c.Workflow.PollInterval <= 0 {
		return errors.New("workflow.poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.MinRegionPercent < 0 || c.OCR.MinRegionPercent >= 100 {
		return errors.New("ocr.min_region_percent must be in [0, 100)")
	}
	return nil
}

func (c *Config) validateImageEdit() error {
	if c.ImageEdit.MinQuality < 0 || c.ImageEdit.MinQuality > 1 {
		return errors.New("image_edit.min_quality must be between 0 and 1")
	}
	if c.ImageEdit.MaxAttempts < 1 {
		return errors.New("image_edit.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateOverlay() error {
	if c.Overlay.MinFontSize <= 0 {
		return errors.New("overlay.min_font_size must be positive")
	}
	if c.Overlay.PlateOpacity < 0 || c.Overlay.PlateOpacity > 1 {
		return errors.New("overlay.plate_opacity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTranslate() error {
	if _, ok := language.Lookup(c.Translate.SourceLanguage); !ok {
		return fmt.Errorf("translate.source_language: unknown language %q", c.Translate.SourceLanguage)
	}
	if _, ok := language.Lookup(c.Translate.TargetLanguage); !ok {
		return fmt.Errorf("translate.target_language: unknown language %q", c.Translate.TargetLanguage)
	}
	if c.Translate.SourceLanguage == c.Translate.TargetLanguage {
		return errors.New("translate.source_language and translate.target_language must differ")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.Stability < 0 || c.TTS.Stability > 1 {
		return errors.New("tts.stability must be between 0 and 1")
	}
	if c.TTS.Similarity < 0 || c.TTS.Similarity > 1 {
		return errors.New("tts.similarity must be between 0 and 1")
	}
	if c.TTS.RequestIntervalMS < 0 {
		return errors.New("tts.request_interval_ms must not be negative")
	}
	return nil
}

func (c *Config) validateSeparation() error {
	if c.Separation.MixVolume < 0 || c.Separation.MixVolume > 1 {
		return errors.New("separation.mix_volume must be between 0 and 1")
	}
	return nil
}
