package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"redub/internal/logging"
)

// Band geometry used when an overlay carries no position of its own:
// full-width stacked bands with a 10% left margin and a 15% vertical stride
// per overlay index.
const (
	defaultBandXPercent      = 10.0
	defaultBandStridePercent = 15.0
	defaultBandWidthPercent  = 80.0
	defaultBandHeightPercent = 10.0
)

// Compositor rasterizes translated overlay text into semi-transparent boxes
// at the overlay's position. It is fully deterministic and never depends on
// an external service, making it the guaranteed-floor fallback for the
// generative editor.
type Compositor struct {
	minFontSize  int
	paddingPx    int
	plateOpacity float64
	fontSource   *opentype.Font
	logger       *slog.Logger
}

// CompositorConfig collects the compositor's tunables.
type CompositorConfig struct {
	MinFontSize  int
	PaddingPx    int
	PlateOpacity float64
}

// NewCompositor constructs a compositor. The bundled Go Regular typeface is
// used for all rendering.
func NewCompositor(cfg CompositorConfig, logger *slog.Logger) (*Compositor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("compositor: parse font: %w", err)
	}
	minFont := cfg.MinFontSize
	if minFont <= 0 {
		minFont = 12
	}
	padding := cfg.PaddingPx
	if padding <= 0 {
		padding = 8
	}
	opacity := cfg.PlateOpacity
	if opacity <= 0 || opacity > 1 {
		opacity = 0.6
	}
	return &Compositor{
		minFontSize:  minFont,
		paddingPx:    padding,
		plateOpacity: opacity,
		fontSource:   parsed,
		logger:       logger,
	}, nil
}

// Compose renders every overlay onto a copy of the image at imagePath and
// writes the flattened result to outputPath. An empty overlay list returns
// the original path without writing anything. The source pixels are never
// mutated: all overlays are drawn on a separate layer composited over the
// original in a single final pass.
func (c *Compositor) Compose(imagePath string, overlays []TextOverlay, outputPath string) (string, error) {
	if len(overlays) == 0 {
		return imagePath, nil
	}

	base, format, err := loadImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("compositor: %w", err)
	}
	bounds := base.Bounds()
	layer := image.NewRGBA(bounds)

	for i, ov := range overlays {
		box := c.resolveBox(ov, i, bounds.Dx(), bounds.Dy())
		if box.Dx() <= 0 || box.Dy() <= 0 {
			c.logger.Warn("skipping overlay with empty box",
				logging.Int("index", i), logging.String("text", ov.TranslatedText))
			continue
		}
		if err := c.renderOverlay(layer, box, ov.TranslatedText); err != nil {
			return "", fmt.Errorf("compositor: render overlay %d: %w", i, err)
		}
	}

	flattened := image.NewRGBA(bounds)
	draw.Draw(flattened, bounds, base, bounds.Min, draw.Src)
	draw.Draw(flattened, bounds, layer, bounds.Min, draw.Over)

	if err := saveImage(flattened, format, outputPath); err != nil {
		return "", fmt.Errorf("compositor: %w", err)
	}
	return outputPath, nil
}

// resolveBox converts percent geometry to pixels, substituting the stacked
// default band when the overlay has no geometry of its own.
func (c *Compositor) resolveBox(ov TextOverlay, index, imgWidth, imgHeight int) image.Rectangle {
	xPct, yPct := defaultBandXPercent, defaultBandStridePercent*float64(index)+defaultBandXPercent
	wPct, hPct := defaultBandWidthPercent, defaultBandHeightPercent
	if ov.Position != nil {
		xPct, yPct = ov.Position.XPercent, ov.Position.YPercent
	}
	if ov.Size != nil {
		wPct, hPct = ov.Size.WidthPercent, ov.Size.HeightPercent
	}
	x := int(xPct / 100 * float64(imgWidth))
	y := int(yPct / 100 * float64(imgHeight))
	w := int(wPct / 100 * float64(imgWidth))
	h := int(hPct / 100 * float64(imgHeight))
	return image.Rect(x, y, x+w, y+h)
}

func (c *Compositor) renderOverlay(layer *image.RGBA, box image.Rectangle, text string) error {
	plate := color.NRGBA{R: 20, G: 20, B: 20, A: uint8(c.plateOpacity * 255)}
	draw.Draw(layer, box, image.NewUniform(plate), image.Point{}, draw.Src)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	face, lines, lineHeight, err := c.fitText(text, box.Dx(), box.Dy())
	if err != nil {
		return err
	}
	defer face.Close()

	blockHeight := len(lines) * lineHeight
	startY := box.Min.Y + (box.Dy()-blockHeight)/2
	if startY < box.Min.Y {
		startY = box.Min.Y
	}
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()

	drawer := &font.Drawer{
		Dst:  layer,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(box.Min.X+c.paddingPx, startY+i*lineHeight+ascent)
		drawer.DrawString(line)
	}
	return nil
}

// fitText finds the largest font size at which the word-wrapped text fits the
// box, starting from a size proportional to box height and decrementing until
// the block fits or the minimum size is reached. At the minimum it accepts
// overflow rather than rendering illegibly small text.
func (c *Compositor) fitText(text string, boxWidth, boxHeight int) (font.Face, []string, int, error) {
	usableWidth := boxWidth - 2*c.paddingPx
	if usableWidth < 1 {
		usableWidth = 1
	}
	size := boxHeight / 2
	if size < c.minFontSize {
		size = c.minFontSize
	}

	for {
		face, err := opentype.NewFace(c.fontSource, &opentype.FaceOptions{
			Size:    float64(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, nil, 0, fmt.Errorf("build font face: %w", err)
		}
		lines := wrapText(face, text, usableWidth)
		lineHeight := face.Metrics().Height.Ceil()
		if len(lines)*lineHeight <= boxHeight || size <= c.minFontSize {
			return face, lines, lineHeight, nil
		}
		face.Close()
		size--
	}
}

// wrapText greedily wraps words so no line measures wider than maxWidth. A
// single word wider than maxWidth occupies its own line and overflows.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	limit := fixed.I(maxWidth)

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate) <= limit {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

func loadImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

func saveImage(img image.Image, format, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmpPath := path + ".composite.tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	switch format {
	case "png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode image: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize output: %w", err)
	}
	return nil
}
