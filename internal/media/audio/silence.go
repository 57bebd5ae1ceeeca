package audio

import (
	"context"
	"fmt"
	"strconv"
)

// Silence writes a silent WAV clip of the given duration in seconds.
// Durations are rendered with millisecond precision; callers requesting a
// non-positive duration get an error rather than an empty file.
func (t *Toolbox) Silence(ctx context.Context, seconds float64, dest string) error {
	if seconds <= 0 {
		return fmt.Errorf("silence: invalid duration %v", seconds)
	}
	args := []string{
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", formatSeconds(seconds),
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg silence: %w", err)
	}
	return nil
}

// PadEnd appends trailing silence to an audio clip.
func (t *Toolbox) PadEnd(ctx context.Context, source string, padSeconds float64, dest string) error {
	if padSeconds <= 0 {
		return fmt.Errorf("pad: invalid duration %v", padSeconds)
	}
	args := []string{
		"-i", source,
		"-af", "apad=pad_dur=" + formatSeconds(padSeconds),
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg pad: %w", err)
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
