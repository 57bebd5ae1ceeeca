package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"redub/internal/logging"
	"redub/internal/pipeline"
	"redub/internal/textutil"
)

// Rough per-call costs in USD used for spend accounting. These track
// published provider pricing, not billed totals.
const (
	costOCRCall        = 0.0015
	costClassifierCall = 0.002
	costEditCall       = 0.04
	costValidationCall = 0.002
)

// Pipeline localizes a single image end to end: detect overlays, translate,
// edit or composite, and report the outcome.
type Pipeline struct {
	classifier *Classifier
	editor     *Editor
	logger     *slog.Logger
}

// NewPipeline constructs the image localization pipeline.
func NewPipeline(classifier *Classifier, editor *Editor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{classifier: classifier, editor: editor, logger: logger}
}

// Process localizes the image at imagePath, writing any produced file under
// outputDir. The returned result always names a usable file; when no author
// overlays are found or every transformation path fails, it is the original.
func (p *Pipeline) Process(ctx context.Context, imagePath, outputDir string) (*pipeline.Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result := &pipeline.Result{FinalPath: imagePath}

	overlays := p.classifier.Detect(ctx, imagePath)
	result.CostEstimate += costOCRCall + costClassifierCall
	if len(overlays) == 0 {
		p.logger.Info("no author overlays detected", logging.String("image", imagePath))
		return result, nil
	}
	p.logger.Info("author overlays detected",
		logging.String("image", imagePath), logging.Int("count", len(overlays)))

	outputPath := localizedPath(imagePath, outputDir)
	localized := p.editor.Localize(ctx, imagePath, overlays, outputPath)
	result.FinalPath = localized.Path
	result.UsedFallback = localized.UsedFallback
	result.CostEstimate += float64(localized.EditAttempts)*costEditCall +
		float64(localized.Validations)*costValidationCall
	for _, warning := range localized.Warnings {
		result.AddWarning(warning)
	}
	return result, nil
}

func localizedPath(imagePath, outputDir string) string {
	base := filepath.Base(imagePath)
	ext := filepath.Ext(base)
	name := textutil.SanitizeFileName(strings.TrimSuffix(base, ext))
	return filepath.Join(outputDir, fmt.Sprintf("%s_localized%s", name, ext))
}
