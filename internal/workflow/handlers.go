package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"redub/internal/config"
	"redub/internal/deps"
	"redub/internal/dubbing"
	"redub/internal/language"
	"redub/internal/logging"
	"redub/internal/media/audio"
	"redub/internal/overlay"
	"redub/internal/pacing"
	"redub/internal/pipeline"
	"redub/internal/queue"
	"redub/internal/services"
	"redub/internal/services/imagedit"
	"redub/internal/services/ocr"
	"redub/internal/services/stt"
	"redub/internal/services/tts"
	"redub/internal/services/vision"
	"redub/internal/stage"
)

// RegisterDefaultHandlers wires the image and video handlers from config.
func (m *Manager) RegisterDefaultHandlers() error {
	imageHandler, err := NewImageHandler(m.cfg, m.logger)
	if err != nil {
		return fmt.Errorf("image handler: %w", err)
	}
	m.RegisterHandler(queue.MediaImage, imageHandler)
	m.RegisterHandler(queue.MediaVideo, NewVideoHandler(m.cfg, m.logger))
	return nil
}

// ImageHandler localizes image items through the overlay pipeline.
type ImageHandler struct {
	cfg      *config.Config
	pipeline *overlay.Pipeline
}

// NewImageHandler builds the image localization handler from config.
func NewImageHandler(cfg *config.Config, logger *slog.Logger) (*ImageHandler, error) {
	logger = logging.NewComponentLogger(logger, "overlay")

	visionClient := vision.NewClient(vision.Config{
		APIKey:         cfg.Vision.APIKey,
		BaseURL:        cfg.Vision.BaseURL,
		Model:          cfg.Vision.Model,
		TimeoutSeconds: cfg.Vision.TimeoutSeconds,
	})
	ocrClient := ocr.NewClient(ocr.Config{
		Endpoint:       cfg.OCR.Endpoint,
		APIKey:         cfg.OCR.APIKey,
		TimeoutSeconds: cfg.OCR.TimeoutSeconds,
	})
	editClient := imagedit.NewClient(imagedit.Config{
		APIKey:         cfg.ImageEdit.APIKey,
		BaseURL:        cfg.ImageEdit.BaseURL,
		Model:          cfg.ImageEdit.Model,
		TimeoutSeconds: cfg.ImageEdit.TimeoutSeconds,
	})
	compositor, err := overlay.NewCompositor(overlay.CompositorConfig{
		MinFontSize:  cfg.Overlay.MinFontSize,
		PaddingPx:    cfg.Overlay.PaddingPx,
		PlateOpacity: cfg.Overlay.PlateOpacity,
	}, logger)
	if err != nil {
		return nil, err
	}

	classifier := overlay.NewClassifier(ocrClient, visionClient, overlay.ClassifierConfig{
		MinRegionPercent: cfg.OCR.MinRegionPercent,
		BatchSize:        cfg.Vision.BatchSize,
		SourceLanguage:   language.DisplayName(cfg.Translate.SourceLanguage),
		TargetLanguage:   language.DisplayName(cfg.Translate.TargetLanguage),
	}, logger)
	editor := overlay.NewEditor(editClient, visionClient, compositor, overlay.EditorConfig{
		MaxAttempts: cfg.ImageEdit.MaxAttempts,
		MinQuality:  cfg.ImageEdit.MinQuality,
	}, logger)

	return &ImageHandler{
		cfg:      cfg,
		pipeline: overlay.NewPipeline(classifier, editor, logger),
	}, nil
}

// Prepare verifies the source image exists before any paid call is made.
func (h *ImageHandler) Prepare(ctx context.Context, item *queue.Item) error {
	return checkSource(item.SourcePath, "image")
}

// Execute localizes the image and records the outcome on the item.
func (h *ImageHandler) Execute(ctx context.Context, item *queue.Item) error {
	result, err := h.pipeline.Process(ctx, item.SourcePath, h.cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	applyResult(item, result)
	return nil
}

// HealthCheck reports whether the handler's services are configured.
func (h *ImageHandler) HealthCheck(ctx context.Context) stage.Health {
	const name = "image localization"
	if strings.TrimSpace(h.cfg.Vision.APIKey) == "" {
		return stage.Unhealthy(name, "vision api key missing")
	}
	if strings.TrimSpace(h.cfg.OCR.Endpoint) == "" {
		return stage.Unhealthy(name, "ocr endpoint not configured")
	}
	if strings.TrimSpace(h.cfg.ImageEdit.APIKey) == "" {
		return stage.Unhealthy(name, "image edit api key missing")
	}
	return stage.Healthy(name)
}

// VideoHandler dubs video items through the dubbing pipeline.
type VideoHandler struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *dubbing.Pipeline
}

// NewVideoHandler builds the video dubbing handler from config.
func NewVideoHandler(cfg *config.Config, logger *slog.Logger) *VideoHandler {
	logger = logging.NewComponentLogger(logger, "dubbing")

	toolbox := audio.NewToolbox()
	visionClient := vision.NewClient(vision.Config{
		APIKey:         cfg.Vision.APIKey,
		BaseURL:        cfg.Vision.BaseURL,
		Model:          cfg.Vision.Model,
		TimeoutSeconds: cfg.Vision.TimeoutSeconds,
	})
	sttClient := stt.NewClient(stt.Config{
		APIKey:         cfg.Transcribe.APIKey,
		BaseURL:        cfg.Transcribe.BaseURL,
		Model:          cfg.Transcribe.Model,
		MaxUploadMB:    cfg.Transcribe.MaxUploadMB,
		TimeoutSeconds: cfg.Transcribe.TimeoutSeconds,
		RetryAttempts:  cfg.Transcribe.RetryAttempts,
	})
	ttsClient := tts.NewClient(tts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		VoiceID:        cfg.TTS.VoiceID,
		Stability:      cfg.TTS.Stability,
		Similarity:     cfg.TTS.Similarity,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})

	translator := dubbing.NewTranslator(visionClient,
		language.DisplayName(cfg.Translate.SourceLanguage),
		language.DisplayName(cfg.Translate.TargetLanguage),
		cfg.Translate.WordsPerSecond, logger)
	pacer := pacing.NewScheduler(time.Duration(cfg.TTS.RequestIntervalMS) * time.Millisecond)
	synthesizer := dubbing.NewSynthesizer(ttsClient, pacer, toolbox.Duration, toolbox.TranscodeToWAV, logger)
	assembler := dubbing.NewAssembler(toolbox, logger)

	var separator dubbing.BackgroundSeparator
	if deps.SeparationAvailable(cfg) {
		separator = dubbing.NewSeparator(cfg.Separation.Command)
	} else if cfg.Separation.Enabled {
		logger.Warn("separation enabled but tool unavailable, dubbing without background",
			logging.String("command", cfg.Separation.Command))
	}

	return &VideoHandler{
		cfg:    cfg,
		logger: logger,
		pipeline: dubbing.NewPipeline(dubbing.PipelineOptions{
			Audio:          toolbox,
			Transcriber:    sttClient,
			Translator:     translator,
			Synthesizer:    synthesizer,
			Assembler:      assembler,
			Separator:      separator,
			SourceLangCode: cfg.Translate.SourceLanguage,
			MixVolume:      cfg.Separation.MixVolume,
			CleanupWorkDir: cfg.Workflow.CleanupWorkDirs,
			Logger:         logger,
		}),
	}
}

// Prepare verifies the source video exists before any paid call is made.
func (h *VideoHandler) Prepare(ctx context.Context, item *queue.Item) error {
	return checkSource(item.SourcePath, "video")
}

// Execute dubs the video in a per-item working directory and records the
// outcome on the item.
func (h *VideoHandler) Execute(ctx context.Context, item *queue.Item) error {
	workDir := filepath.Join(h.cfg.Paths.WorkDir, "run-"+item.RunID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	result, metrics, err := h.pipeline.Process(ctx, item.SourcePath, workDir, h.cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	applyResult(item, result)
	h.logger.Info("dub metrics",
		logging.Int64("item_id", item.ID),
		logging.Int("segments", metrics.SegmentCount),
		logging.Int("untranslated_segments", metrics.UntranslatedSegments),
		logging.Int("failed_segments", metrics.FailedSegments),
		logging.Int("capped_segments", metrics.CappedSegments),
		logging.Bool("separation_used", metrics.SeparationUsed),
		logging.Float64("video_duration", metrics.VideoDuration))
	if h.cfg.Workflow.CleanupWorkDirs {
		if err := os.RemoveAll(workDir); err != nil {
			h.logger.Warn("work dir cleanup failed",
				logging.String("dir", workDir), logging.Error(err))
		}
	}
	return nil
}

// HealthCheck reports whether the handler's services and tools are ready.
func (h *VideoHandler) HealthCheck(ctx context.Context) stage.Health {
	const name = "video dubbing"
	if strings.TrimSpace(h.cfg.Transcribe.APIKey) == "" {
		return stage.Unhealthy(name, "transcription api key missing")
	}
	if strings.TrimSpace(h.cfg.TTS.APIKey) == "" {
		return stage.Unhealthy(name, "synthesis api key missing")
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(h.cfg)) {
		if !status.Available && !status.Optional {
			return stage.Unhealthy(name, status.Detail)
		}
	}
	return stage.Healthy(name)
}

func checkSource(path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, kind, "prepare",
			fmt.Sprintf("source file %s not readable", path), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, kind, "prepare",
			fmt.Sprintf("source %s is a directory", path), nil)
	}
	return nil
}

func applyResult(item *queue.Item, result *pipeline.Result) {
	item.OutputPath = result.FinalPath
	item.UsedFallback = result.UsedFallback
	item.CostEstimate = result.CostEstimate
	for _, warning := range result.Warnings {
		item.AddWarning(warning)
	}
}
