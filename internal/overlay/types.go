// Package overlay implements the image text-overlay localization pipeline:
// OCR region detection, generative overlay classification and translation,
// generative image editing with validation, and a deterministic compositor
// fallback that guarantees a usable output.
package overlay

// Position locates an overlay's top-left corner in percent of image size.
type Position struct {
	XPercent float64
	YPercent float64
}

// Dimensions sizes an overlay box in percent of image size.
type Dimensions struct {
	WidthPercent  float64
	HeightPercent float64
}

// TextOverlay is one author-added text block with its translation. Geometry
// is percent-based so it survives resizing; nil geometry means the overlay
// has no known placement and the compositor falls back to stacked bands.
type TextOverlay struct {
	SourceText      string
	TranslatedText  string
	Position        *Position
	Size            *Dimensions
	IsAuthorOverlay bool
}
