package overlay

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"redub/internal/logging"
	"redub/internal/services/ocr"
	"redub/internal/services/vision"
)

const defaultBatchSize = 8

// RegionDetector detects paragraph-level text regions in an image.
type RegionDetector interface {
	DetectRegions(ctx context.Context, imagePath string) ([]ocr.Region, error)
}

// VisionModel issues multimodal JSON completions.
type VisionModel interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, images ...vision.Image) (string, error)
}

// Classifier turns an image into an ordered list of author-overlay
// translation units. Every failure path degrades to an empty list; a broken
// OCR or classification call must never abort the surrounding pipeline.
type Classifier struct {
	detector         RegionDetector
	model            VisionModel
	minRegionPercent float64
	batchSize        int
	sourceLanguage   string
	targetLanguage   string
	logger           *slog.Logger
}

// ClassifierConfig collects the classifier's tunables.
type ClassifierConfig struct {
	MinRegionPercent float64
	BatchSize        int
	SourceLanguage   string
	TargetLanguage   string
}

// NewClassifier constructs a classifier over the supplied services.
func NewClassifier(detector RegionDetector, model VisionModel, cfg ClassifierConfig, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Classifier{
		detector:         detector,
		model:            model,
		minRegionPercent: cfg.MinRegionPercent,
		batchSize:        batchSize,
		sourceLanguage:   cfg.SourceLanguage,
		targetLanguage:   cfg.TargetLanguage,
		logger:           logger,
	}
}

type candidateBlock struct {
	region        ocr.Region
	widthPercent  float64
	heightPercent float64
	xPercent      float64
	yPercent      float64
}

type classifiedRow struct {
	Index           int    `json:"index"`
	IsAuthorOverlay bool   `json:"is_author_overlay"`
	Translation     string `json:"translation"`
}

// Detect returns the author overlays found in the image, translated. The
// result is empty, never an error, when detection or classification fails.
func (c *Classifier) Detect(ctx context.Context, imagePath string) []TextOverlay {
	width, height, err := imageDimensions(imagePath)
	if err != nil {
		c.logger.Warn("overlay detection skipped", logging.Error(err))
		return nil
	}

	regions, err := c.detector.DetectRegions(ctx, imagePath)
	if err != nil {
		c.logger.Warn("text detection failed", logging.Error(err))
		return nil
	}
	candidates := c.filterRegions(regions, width, height)
	if len(candidates) == 0 {
		return nil
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		c.logger.Warn("overlay classification skipped", logging.Error(err))
		return nil
	}
	attachment := vision.Image{MIMEType: mimeTypeForPath(imagePath), Data: imageData}

	rows := c.classify(ctx, candidates, attachment)
	return c.assemble(candidates, rows)
}

// filterRegions drops regions whose box is tiny in BOTH dimensions. A
// short-but-tall or long-but-thin caption is still meaningful, so a single
// small dimension does not disqualify.
func (c *Classifier) filterRegions(regions []ocr.Region, imgWidth, imgHeight int) []candidateBlock {
	if imgWidth <= 0 || imgHeight <= 0 {
		return nil
	}
	candidates := make([]candidateBlock, 0, len(regions))
	for _, r := range regions {
		widthPct := float64(r.Width) / float64(imgWidth) * 100
		heightPct := float64(r.Height) / float64(imgHeight) * 100
		if widthPct < c.minRegionPercent && heightPct < c.minRegionPercent {
			continue
		}
		candidates = append(candidates, candidateBlock{
			region:        r,
			widthPercent:  widthPct,
			heightPercent: heightPct,
			xPercent:      float64(r.X) / float64(imgWidth) * 100,
			yPercent:      float64(r.Y) / float64(imgHeight) * 100,
		})
	}
	return candidates
}

// classify runs the generative classifier, first over all blocks in one call
// and then, if the single call fails to parse or the block count exceeds the
// batch size, over fixed-size batches whose results are unioned. A batch that
// fails contributes zero rows.
func (c *Classifier) classify(ctx context.Context, blocks []candidateBlock, attachment vision.Image) map[int]classifiedRow {
	if len(blocks) <= c.batchSize {
		rows, err := c.classifyBatch(ctx, blocks, 0, attachment)
		if err == nil {
			return rows
		}
		c.logger.Warn("single-call classification failed, batching", logging.Error(err))
	}

	merged := make(map[int]classifiedRow)
	for start := 0; start < len(blocks); start += c.batchSize {
		end := start + c.batchSize
		if end > len(blocks) {
			end = len(blocks)
		}
		rows, err := c.classifyBatch(ctx, blocks[start:end], start, attachment)
		if err != nil {
			c.logger.Warn("classification batch failed",
				logging.Int("batch_start", start), logging.Error(err))
			continue
		}
		for idx, row := range rows {
			merged[idx] = row
		}
	}
	return merged
}

func (c *Classifier) classifyBatch(ctx context.Context, blocks []candidateBlock, indexOffset int, attachment vision.Image) (map[int]classifiedRow, error) {
	content, err := c.model.CompleteJSON(ctx, classifierSystemPrompt, c.buildUserPrompt(blocks, indexOffset), attachment)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Overlays []classifiedRow `json:"overlays"`
	}
	if err := vision.DecodeModelJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}

	rows := make(map[int]classifiedRow, len(parsed.Overlays))
	for _, row := range parsed.Overlays {
		if row.Index < indexOffset || row.Index >= indexOffset+len(blocks) {
			continue
		}
		rows[row.Index] = row
	}
	return rows, nil
}

const classifierSystemPrompt = `You analyze social media images. Text in such images is either author-added (captions, stickers, labels overlaid during editing) or scene text (signs, menus, packaging physically present in the photo). You respond with JSON only, shaped as {"overlays":[{"index":<int>,"is_author_overlay":<bool>,"translation":"<string>"}]}. For author-added blocks, translation holds a natural translation; for scene text it is an empty string.`

func (c *Classifier) buildUserPrompt(blocks []candidateBlock, indexOffset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The image contains %d detected text blocks. For each, decide whether it is author-added or scene text, and translate author-added text from %s to %s.\n\n",
		len(blocks), c.sourceLanguage, c.targetLanguage)
	for i, block := range blocks {
		fmt.Fprintf(&b, "Block %d (at %.0f%%,%.0f%% of image): %q\n",
			indexOffset+i, block.xPercent, block.yPercent, block.region.Text)
	}
	b.WriteString("\nRespond with the JSON object only.")
	return b.String()
}

// assemble maps classifier rows back to their bounding boxes, keeping only
// author overlays with a non-empty translation. Rows with out-of-range
// indices were already dropped during parsing.
func (c *Classifier) assemble(blocks []candidateBlock, rows map[int]classifiedRow) []TextOverlay {
	overlays := make([]TextOverlay, 0, len(rows))
	for i, block := range blocks {
		row, ok := rows[i]
		if !ok || !row.IsAuthorOverlay {
			continue
		}
		translation := strings.TrimSpace(row.Translation)
		if translation == "" {
			continue
		}
		overlays = append(overlays, TextOverlay{
			SourceText:      block.region.Text,
			TranslatedText:  translation,
			Position:        &Position{XPercent: block.xPercent, YPercent: block.yPercent},
			Size:            &Dimensions{WidthPercent: block.widthPercent, HeightPercent: block.heightPercent},
			IsAuthorOverlay: true,
		})
	}
	return overlays
}

func imageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func mimeTypeForPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	default:
		return "image/jpeg"
	}
}
