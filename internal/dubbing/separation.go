package dubbing

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// SeparationRunner executes the vocal-separation command.
type SeparationRunner func(ctx context.Context, name string, args ...string) error

func defaultSeparationRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Separator wraps a demucs-style local vocal-separation tool. The tool
// writes vocals.wav and no_vocals.wav under
// <outDir>/<model>/<input-stem>/.
type Separator struct {
	command string
	model   string
	run     SeparationRunner
}

// NewSeparator constructs a separator invoking the named command.
func NewSeparator(command string, opts ...SeparatorOption) *Separator {
	s := &Separator{command: command, model: "htdemucs", run: defaultSeparationRunner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeparatorOption customizes the separator.
type SeparatorOption func(*Separator)

// WithSeparationRunner overrides command execution (useful for tests).
func WithSeparationRunner(run SeparationRunner) SeparatorOption {
	return func(s *Separator) {
		if run != nil {
			s.run = run
		}
	}
}

// SeparateBackground splits the audio file into vocal and background stems
// and returns the background-only file path.
func (s *Separator) SeparateBackground(ctx context.Context, audioPath, outDir string) (string, error) {
	args := []string{
		"--two-stems", "vocals",
		"-n", s.model,
		"-o", outDir,
		audioPath,
	}
	if err := s.run(ctx, s.command, args...); err != nil {
		return "", fmt.Errorf("vocal separation: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	background := filepath.Join(outDir, s.model, stem, "no_vocals.wav")
	if _, err := os.Stat(background); err != nil {
		return "", fmt.Errorf("vocal separation: background stem missing: %w", err)
	}
	return background, nil
}
