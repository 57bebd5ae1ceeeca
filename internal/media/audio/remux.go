package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ReplaceAudio swaps a video's audio stream for the provided track without
// re-encoding video. The write is atomic: a temporary file in the destination
// directory is renamed into place on success.
func (t *Toolbox) ReplaceAudio(ctx context.Context, videoPath, audioPath, dest string) error {
	tmpPath := tempOutputPath(dest)
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-f", "mp4",
		tmpPath,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("ffmpeg remux: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remux rename: %w", err)
	}
	return nil
}

// MixAndReplaceAudio remuxes a video with the speech track mixed over an
// attenuated background track. The mix duration follows the speech track.
func (t *Toolbox) MixAndReplaceAudio(ctx context.Context, videoPath, speechPath, backgroundPath string, backgroundVolume float64, dest string) error {
	if backgroundVolume < 0 {
		backgroundVolume = 0
	}
	if backgroundVolume > 1 {
		backgroundVolume = 1
	}
	filter := "[2:a]volume=" + strconv.FormatFloat(backgroundVolume, 'f', 2, 64) +
		"[bg];[1:a][bg]amix=inputs=2:duration=first:dropout_transition=0[mix]"

	tmpPath := tempOutputPath(dest)
	args := []string{
		"-i", videoPath,
		"-i", speechPath,
		"-i", backgroundPath,
		"-filter_complex", filter,
		"-map", "0:v:0",
		"-map", "[mix]",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-f", "mp4",
		tmpPath,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("ffmpeg mix remux: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("remux rename: %w", err)
	}
	return nil
}

func tempOutputPath(dest string) string {
	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	return filepath.Join(dir, ".remux-"+base+".tmp")
}
