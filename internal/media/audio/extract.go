package audio

import (
	"context"
	"fmt"
)

// ExtractMono16k extracts an audio stream as mono 16kHz PCM WAV, the format
// speech-recognition services expect.
func (t *Toolbox) ExtractMono16k(ctx context.Context, source string, audioIndex int, dest string) error {
	if audioIndex < 0 {
		return fmt.Errorf("extract audio: invalid audio track index %d", audioIndex)
	}
	args := []string{
		"-i", source,
		"-map", fmt.Sprintf("0:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	return nil
}

// ExtractStereo44k extracts an audio stream as stereo 44.1kHz PCM WAV,
// the higher-fidelity input vocal separation wants.
func (t *Toolbox) ExtractStereo44k(ctx context.Context, source string, audioIndex int, dest string) error {
	if audioIndex < 0 {
		return fmt.Errorf("extract audio: invalid audio track index %d", audioIndex)
	}
	args := []string{
		"-i", source,
		"-map", fmt.Sprintf("0:%d", audioIndex),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "2",
		"-ar", "44100",
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg extract stereo: %w", err)
	}
	return nil
}
