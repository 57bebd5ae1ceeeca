// Package pipeline holds the result envelope shared by the image-overlay and
// video-dubbing pipelines.
package pipeline

// Result is the per-item outcome returned by a media pipeline run.
type Result struct {
	// FinalPath is the produced output file. It always points at a usable
	// file, falling back to the unmodified source when every transformation
	// path failed.
	FinalPath string

	// UsedFallback reports that a degraded path (deterministic compositor,
	// original passthrough) produced FinalPath.
	UsedFallback bool

	// CostEstimate accumulates the approximate spend on external service
	// calls for this item, in US dollars.
	CostEstimate float64

	// Warnings carries non-fatal conditions attached during processing.
	Warnings []string
}

// AddWarning appends a non-empty warning message.
func (r *Result) AddWarning(message string) {
	if message == "" {
		return
	}
	r.Warnings = append(r.Warnings, message)
}
