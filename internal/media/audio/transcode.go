package audio

import (
	"context"
	"fmt"
)

// TranscodeToWAV re-encodes an audio clip to 16-bit PCM mono at 44.1 kHz.
// Every clip entering track assembly goes through this so the concat demuxer
// only ever sees one format.
func (t *Toolbox) TranscodeToWAV(ctx context.Context, source, dest string) error {
	args := []string{
		"-i", source,
		"-ar", "44100",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return nil
}
