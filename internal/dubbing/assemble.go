package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"redub/internal/logging"
	"redub/internal/media/audio"
)

// Gaps shorter than this are dropped rather than rendered as silence clips;
// ffmpeg cannot generate meaningful sub-centisecond clips.
const minGapSeconds = 0.01

// Assembler builds one continuous audio track spanning the full video
// duration by alternating silence and speech clips positioned at each
// segment's original start time.
type Assembler struct {
	audio  *audio.Toolbox
	logger *slog.Logger
}

// NewAssembler constructs an assembler over the audio toolbox.
func NewAssembler(toolbox *audio.Toolbox, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{audio: toolbox, logger: logger}
}

// Assemble writes the continuous track to workDir/dubbed_track.wav and
// returns its path. Segments without audio contribute silence for their
// slot; trailing silence pads the track to videoDuration. An empty segment
// list yields a track of pure silence.
func (a *Assembler) Assemble(ctx context.Context, segments []SpeechSegment, videoDuration float64, workDir string) (string, error) {
	if videoDuration <= 0 {
		return "", fmt.Errorf("assemble track: non-positive video duration %.3f", videoDuration)
	}

	ordered := make([]SpeechSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var pieces []string
	var cleanup []string
	silenceIndex := 0
	cursor := 0.0

	appendSilence := func(duration float64) error {
		if duration < minGapSeconds {
			return nil
		}
		path := filepath.Join(workDir, fmt.Sprintf("silence_%d.wav", silenceIndex))
		silenceIndex++
		if err := a.audio.Silence(ctx, duration, path); err != nil {
			return fmt.Errorf("assemble track: silence clip: %w", err)
		}
		pieces = append(pieces, path)
		cleanup = append(cleanup, path)
		cursor += duration
		return nil
	}

	for i, seg := range ordered {
		if gap := seg.Start - cursor; gap >= minGapSeconds {
			if err := appendSilence(gap); err != nil {
				return "", err
			}
		}

		clip := seg.AdjustedAudioPath
		if clip == "" {
			clip = seg.AudioPath
		}
		if clip == "" {
			// Failed synthesis: the slot plays silent.
			a.logger.Warn("segment has no audio, filling slot with silence",
				logging.Int("segment", i))
			if err := appendSilence(seg.Duration()); err != nil {
				return "", err
			}
			continue
		}
		clipDuration, err := a.audio.Duration(ctx, clip)
		if err != nil {
			return "", fmt.Errorf("assemble track: probe clip: %w", err)
		}
		pieces = append(pieces, clip)
		cursor += clipDuration
	}

	if trailing := videoDuration - cursor; trailing >= minGapSeconds {
		if err := appendSilence(trailing); err != nil {
			return "", err
		}
	}

	trackPath := filepath.Join(workDir, "dubbed_track.wav")
	if err := a.audio.Concat(ctx, pieces, trackPath); err != nil {
		return "", fmt.Errorf("assemble track: %w", err)
	}
	a.removeAll(cleanup)
	return trackPath, nil
}

func (a *Assembler) removeAll(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			a.logger.Warn("cleanup failed", logging.String("path", path), logging.Error(err))
		}
	}
}
