package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"redub/internal/logging"
	"redub/internal/services/vision"
)

// ImageEditor submits an edit instruction and writes the edited image.
type ImageEditor interface {
	Edit(ctx context.Context, imagePath, instruction, outputPath string) error
}

// Editor drives generative in-place text replacement with validation and a
// bounded retry, falling back to the deterministic Compositor whenever the
// generative path cannot produce a validated result.
type Editor struct {
	editService ImageEditor
	model       VisionModel
	compositor  *Compositor
	maxAttempts int
	minQuality  float64
	logger      *slog.Logger
}

// EditorConfig collects the editor's tunables.
type EditorConfig struct {
	// MaxAttempts bounds generative edit attempts before falling back.
	MaxAttempts int
	// MinQuality is the validation quality floor in [0,1].
	MinQuality float64
}

// NewEditor constructs an editor over the supplied services.
func NewEditor(editService ImageEditor, model VisionModel, compositor *Compositor, cfg EditorConfig, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}
	minQuality := cfg.MinQuality
	if minQuality <= 0 || minQuality > 1 {
		minQuality = 0.7
	}
	return &Editor{
		editService: editService,
		model:       model,
		compositor:  compositor,
		maxAttempts: maxAttempts,
		minQuality:  minQuality,
		logger:      logger,
	}
}

// LocalizeResult reports how an image was localized.
type LocalizeResult struct {
	Path         string
	UsedFallback bool
	Warnings     []string

	// EditAttempts and Validations count the external calls made, for cost
	// accounting by the caller.
	EditAttempts int
	Validations  int
}

// Localize replaces the overlay text in the image, writing the result to
// outputPath. It never fails: if the generative edit cannot be validated the
// compositor renders the translations onto the original image, and if even
// that fails the original path is returned unchanged.
func (e *Editor) Localize(ctx context.Context, imagePath string, overlays []TextOverlay, outputPath string) LocalizeResult {
	if len(overlays) == 0 {
		return LocalizeResult{Path: imagePath}
	}

	var warnings []string
	var retryReason string
	edits, validations := 0, 0
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		instruction := buildEditInstruction(overlays, retryReason)
		edits++
		if err := e.editService.Edit(ctx, imagePath, instruction, outputPath); err != nil {
			e.logger.Warn("generative edit failed",
				logging.Int("attempt", attempt), logging.Error(err))
			warnings = append(warnings, fmt.Sprintf("generative edit attempt %d failed: %v", attempt, err))
			break
		}
		validations++
		verdict, err := e.validate(ctx, outputPath, overlays)
		if err != nil {
			e.logger.Warn("edit validation errored",
				logging.Int("attempt", attempt), logging.Error(err))
			warnings = append(warnings, fmt.Sprintf("edit validation attempt %d errored: %v", attempt, err))
			break
		}
		if verdict.ok(e.minQuality) {
			return LocalizeResult{Path: outputPath, Warnings: warnings, EditAttempts: edits, Validations: validations}
		}
		retryReason = verdict.failureReason(e.minQuality)
		e.logger.Info("edit validation rejected result",
			logging.Int("attempt", attempt),
			logging.String("reason", retryReason),
			logging.Float64("quality", verdict.QualityScore))
		warnings = append(warnings, fmt.Sprintf("edit validation attempt %d rejected: %s", attempt, retryReason))
	}

	result := e.fallback(imagePath, overlays, outputPath, warnings)
	result.EditAttempts = edits
	result.Validations = validations
	return result
}

type validationVerdict struct {
	AllTranslationsPresent bool    `json:"all_translations_present"`
	SourceTextVisible      bool    `json:"source_text_visible"`
	QualityScore           float64 `json:"quality_score"`
}

func (v validationVerdict) ok(minQuality float64) bool {
	return v.AllTranslationsPresent && !v.SourceTextVisible && v.QualityScore >= minQuality
}

// failureReason describes every check the verdict failed, in the order a
// human would fix them. The text feeds the retry instruction verbatim.
func (v validationVerdict) failureReason(minQuality float64) string {
	var issues []string
	if !v.AllTranslationsPresent {
		issues = append(issues, "some translated texts are missing")
	}
	if v.SourceTextVisible {
		issues = append(issues, "original source text is still visible")
	}
	if v.QualityScore < minQuality {
		issues = append(issues, fmt.Sprintf("the replacement blends poorly (quality %.2f, floor %.2f)", v.QualityScore, minQuality))
	}
	if len(issues) == 0 {
		return "rejected without a stated reason"
	}
	return strings.Join(issues, "; ")
}

func (e *Editor) validate(ctx context.Context, editedPath string, overlays []TextOverlay) (validationVerdict, error) {
	var verdict validationVerdict
	data, err := os.ReadFile(editedPath)
	if err != nil {
		return verdict, fmt.Errorf("read edited image: %w", err)
	}

	var b strings.Builder
	b.WriteString("Inspect this edited image. The following translated texts must all be visible, and none of the original source texts may remain:\n\n")
	for i, ov := range overlays {
		fmt.Fprintf(&b, "%d. expected: %q (replacing %q)\n", i+1, ov.TranslatedText, ov.SourceText)
	}
	b.WriteString("\nRespond with JSON only: {\"all_translations_present\":<bool>,\"source_text_visible\":<bool>,\"quality_score\":<float 0-1>} where quality_score rates how cleanly the replacement blends with the image.")

	content, err := e.model.CompleteJSON(ctx,
		"You verify image text replacements. Respond with JSON only.",
		b.String(),
		vision.Image{MIMEType: mimeTypeForPath(editedPath), Data: data})
	if err != nil {
		return verdict, err
	}
	if err := vision.DecodeModelJSON(content, &verdict); err != nil {
		return verdict, fmt.Errorf("parse validation response: %w", err)
	}
	return verdict, nil
}

func (e *Editor) fallback(imagePath string, overlays []TextOverlay, outputPath string, warnings []string) LocalizeResult {
	rendered, err := e.compositor.Compose(imagePath, overlays, outputPath)
	if err != nil {
		e.logger.Error("compositor fallback failed", logging.Error(err))
		warnings = append(warnings, fmt.Sprintf("compositor fallback failed: %v", err))
		return LocalizeResult{Path: imagePath, UsedFallback: true, Warnings: warnings}
	}
	return LocalizeResult{Path: rendered, UsedFallback: true, Warnings: warnings}
}

func buildEditInstruction(overlays []TextOverlay, retryReason string) string {
	var b strings.Builder
	b.WriteString("Replace the following text overlays in the image, keeping the original font style, size, color, and placement for each:\n")
	for i, ov := range overlays {
		fmt.Fprintf(&b, "%d. Replace %q with %q\n", i+1, ov.SourceText, ov.TranslatedText)
	}
	b.WriteString("Do not alter any other part of the image.")
	if retryReason != "" {
		fmt.Fprintf(&b, " IMPORTANT: a previous attempt was rejected because %s. Fix exactly these problems this time.", retryReason)
	}
	return b.String()
}
