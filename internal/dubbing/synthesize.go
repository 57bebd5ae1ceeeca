package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"redub/internal/logging"
)

// SpeechSynthesizer converts text to an audio file.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}

// CallPacer spaces out external calls.
type CallPacer interface {
	Wait(ctx context.Context) error
}

// DurationProber measures an audio file's duration in seconds.
type DurationProber func(ctx context.Context, path string) (float64, error)

// ClipEncoder re-encodes a speech clip into the track's working format.
type ClipEncoder func(ctx context.Context, source, dest string) error

// Synthesizer produces one audio clip per segment, sequentially and paced
// below the provider's rate ceiling. A per-segment failure is recorded on
// the segment and synthesis continues; the assembler fills the slot with
// silence.
type Synthesizer struct {
	tts    SpeechSynthesizer
	pacer  CallPacer
	probe  DurationProber
	encode ClipEncoder
	logger *slog.Logger
}

// NewSynthesizer constructs a segment synthesizer.
func NewSynthesizer(tts SpeechSynthesizer, pacer CallPacer, probe DurationProber, encode ClipEncoder, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synthesizer{tts: tts, pacer: pacer, probe: probe, encode: encode, logger: logger}
}

// SynthesizeSegments fills AudioPath and AudioDuration on each segment. The
// provider streams MP3 into workDir as segment_N.mp3; each clip is then
// re-encoded to segment_N.wav so the track assembly concatenates a single
// format. It returns the number of segments that failed.
func (s *Synthesizer) SynthesizeSegments(ctx context.Context, segments []SpeechSegment, workDir string) (int, error) {
	failed := 0
	for i := range segments {
		seg := &segments[i]
		if err := s.pacer.Wait(ctx); err != nil {
			return failed, fmt.Errorf("synthesize segments: %w", err)
		}

		rawPath := filepath.Join(workDir, fmt.Sprintf("segment_%d.mp3", i))
		if err := s.tts.Synthesize(ctx, seg.TranslatedText, rawPath); err != nil {
			s.logger.Warn("segment synthesis failed",
				logging.Int("segment", i), logging.Error(err))
			seg.SynthesisError = err.Error()
			failed++
			continue
		}
		clipPath := filepath.Join(workDir, fmt.Sprintf("segment_%d.wav", i))
		if err := s.encode(ctx, rawPath, clipPath); err != nil {
			s.logger.Warn("segment re-encode failed",
				logging.Int("segment", i), logging.Error(err))
			seg.SynthesisError = err.Error()
			failed++
			continue
		}
		duration, err := s.probe(ctx, clipPath)
		if err != nil {
			s.logger.Warn("segment duration probe failed",
				logging.Int("segment", i), logging.Error(err))
			seg.SynthesisError = err.Error()
			failed++
			continue
		}
		seg.AudioPath = clipPath
		seg.AudioDuration = duration
	}
	return failed, nil
}
