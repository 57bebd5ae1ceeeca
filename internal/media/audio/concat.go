package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Concat joins WAV clips into one continuous file using the concat demuxer.
// The temporary list file is removed on both success and failure.
func (t *Toolbox) Concat(ctx context.Context, sources []string, dest string) error {
	if len(sources) == 0 {
		return fmt.Errorf("concat: no input files")
	}

	listPath := filepath.Join(filepath.Dir(dest), ".concat-"+filepath.Base(dest)+".txt")
	var list strings.Builder
	for _, source := range sources {
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(source))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("concat: write list file: %w", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// escapeConcatPath quotes single quotes for the concat demuxer list format.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
