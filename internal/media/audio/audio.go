// Package audio drives ffmpeg for the dubbing pipeline's audio work:
// extraction, silence generation, tempo adjustment, padding, concatenation,
// mixing, and the final remux. Video streams are never re-encoded.
package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"redub/internal/media/ffprobe"
)

// Runner executes an external command. Used to stub ffmpeg in tests.
type Runner func(ctx context.Context, name string, args ...string) error

func defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Toolbox bundles the ffmpeg/ffprobe binaries with a command runner.
type Toolbox struct {
	ffmpeg   string
	ffprobe  string
	run      Runner
	probeRun ffprobe.Runner
}

// NewToolbox constructs a toolbox using binaries resolved from PATH.
func NewToolbox() *Toolbox {
	return &Toolbox{ffmpeg: "ffmpeg", ffprobe: "ffprobe", run: defaultRunner}
}

// WithRunner injects a custom command runner (for tests).
func (t *Toolbox) WithRunner(run Runner) *Toolbox {
	if run != nil {
		t.run = run
	}
	return t
}

// WithProbeRunner injects a custom ffprobe runner (for tests).
func (t *Toolbox) WithProbeRunner(run ffprobe.Runner) *Toolbox {
	t.probeRun = run
	return t
}

// WithBinaries overrides the ffmpeg and ffprobe binary paths.
func (t *Toolbox) WithBinaries(ffmpeg, ffprobeBinary string) *Toolbox {
	if strings.TrimSpace(ffmpeg) != "" {
		t.ffmpeg = ffmpeg
	}
	if strings.TrimSpace(ffprobeBinary) != "" {
		t.ffprobe = ffprobeBinary
	}
	return t
}

// Duration returns the duration of a media file in seconds.
func (t *Toolbox) Duration(ctx context.Context, path string) (float64, error) {
	result, err := t.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

// Inspect probes a media file.
func (t *Toolbox) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	if t.probeRun != nil {
		return ffprobe.InspectWith(ctx, t.probeRun, t.ffprobe, path)
	}
	return ffprobe.Inspect(ctx, t.ffprobe, path)
}

func (t *Toolbox) ffmpegRun(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	return t.run(ctx, t.ffmpeg, full...)
}
