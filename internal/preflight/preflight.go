package preflight

import (
	"context"

	"redub/internal/config"
)

// minFreeBytes is the minimum free space required in the work directory.
const minFreeBytes = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Directories (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckDiskSpace("Free disk space", cfg.Paths.WorkDir, minFreeBytes))

	// Vision model (classification, validation, translation)
	results = append(results, CheckVisionAPI(ctx, cfg.Vision))

	// OCR endpoint
	results = append(results, CheckOCREndpoint(ctx, cfg.OCR))

	// Remaining services only need a credential on file; none of them
	// exposes a health endpoint cheap enough to probe at startup.
	results = append(results, CheckCredential("Image edit API", cfg.ImageEdit.APIKey))
	results = append(results, CheckCredential("Transcription API", cfg.Transcribe.APIKey))
	results = append(results, CheckCredential("Speech synthesis API", cfg.TTS.APIKey))

	return results
}

// AllPassed reports whether every result in the set passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
