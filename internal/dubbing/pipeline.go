package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"redub/internal/logging"
	"redub/internal/media/audio"
	"redub/internal/pipeline"
	"redub/internal/services"
	"redub/internal/services/stt"
	"redub/internal/textutil"
)

// Rough per-unit costs in USD used for spend accounting.
const (
	costTranscriptionPerMinute = 0.006
	costTranslationPerSegment  = 0.001
	costSynthesisPerThousand   = 0.18
)

// Transcriber produces a segment-level transcript for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (*stt.Transcript, error)
}

// BackgroundSeparator splits audio into vocal and background stems.
type BackgroundSeparator interface {
	SeparateBackground(ctx context.Context, audioPath, outDir string) (string, error)
}

// Pipeline re-dubs one video: the speech is transcribed, translated,
// synthesized, stretched or padded onto the original timeline, and remuxed
// over the untouched video stream.
type Pipeline struct {
	audio       *audio.Toolbox
	transcriber Transcriber
	translator  *Translator
	synthesizer *Synthesizer
	assembler   *Assembler
	// separator is nil when the local separation tool is unavailable; the
	// background-preservation branch is then skipped entirely.
	separator      BackgroundSeparator
	sourceLangCode string
	mixVolume      float64
	cleanupWorkDir bool
	logger         *slog.Logger
}

// PipelineOptions wires the pipeline's collaborators.
type PipelineOptions struct {
	Audio          *audio.Toolbox
	Transcriber    Transcriber
	Translator     *Translator
	Synthesizer    *Synthesizer
	Assembler      *Assembler
	Separator      BackgroundSeparator
	SourceLangCode string
	MixVolume      float64
	CleanupWorkDir bool
	Logger         *slog.Logger
}

// NewPipeline constructs the dubbing pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	mixVolume := opts.MixVolume
	if mixVolume <= 0 || mixVolume > 1 {
		mixVolume = 0.6
	}
	return &Pipeline{
		audio:          opts.Audio,
		transcriber:    opts.Transcriber,
		translator:     opts.Translator,
		synthesizer:    opts.Synthesizer,
		assembler:      opts.Assembler,
		separator:      opts.Separator,
		sourceLangCode: opts.SourceLangCode,
		mixVolume:      mixVolume,
		cleanupWorkDir: opts.CleanupWorkDir,
		logger:         logger,
	}
}

// Process dubs the video at videoPath, writing intermediates under workDir
// and the final muxed file under outputDir. A video in which no speech is
// recognized is a terminal error for this item.
func (p *Pipeline) Process(ctx context.Context, videoPath, workDir, outputDir string) (*pipeline.Result, *Metrics, error) {
	result := &pipeline.Result{FinalPath: videoPath}
	metrics := &Metrics{}

	info, err := p.audio.Inspect(ctx, videoPath)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "dubbing", "inspect video",
			"Could not read the video file", err)
	}
	if info.AudioStreamCount() == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "dubbing", "inspect video",
			"Video has no audio stream to dub", nil)
	}
	videoDuration := info.DurationSeconds()
	if videoDuration <= 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "dubbing", "inspect video",
			"Video reports no duration", nil)
	}
	metrics.VideoDuration = videoDuration
	audioIndex := info.FirstAudioStreamIndex()

	// EXTRACT_AUDIO
	speechTrack := filepath.Join(workDir, "speech_16k.wav")
	if err := p.audio.ExtractMono16k(ctx, videoPath, audioIndex, speechTrack); err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "dubbing", "extract audio",
			"Audio extraction failed", err)
	}

	// SEPARATE_BACKGROUND (optional)
	backgroundTrack := p.separateBackground(ctx, videoPath, audioIndex, workDir, result)
	metrics.SeparationUsed = backgroundTrack != ""

	// TRANSCRIBE
	transcript, err := p.transcriber.Transcribe(ctx, speechTrack, p.sourceLangCode)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "dubbing", "transcribe",
			"Speech recognition failed", err)
	}
	result.CostEstimate += videoDuration / 60 * costTranscriptionPerMinute
	if len(transcript.Segments) == 0 {
		return nil, nil, fmt.Errorf("no speech recognized in %s: nothing to dub", filepath.Base(videoPath))
	}
	segments := buildSegments(transcript.Segments)
	metrics.SegmentCount = len(segments)
	p.logger.Info("transcription complete",
		logging.Int("segments", len(segments)),
		logging.Float64("video_duration", videoDuration))

	// TRANSLATE
	untranslated := p.translator.TranslateSegments(ctx, segments)
	metrics.UntranslatedSegments = untranslated
	if untranslated > 0 {
		result.AddWarning(fmt.Sprintf("%d of %d segments failed translation and keep their source text", untranslated, len(segments)))
	}
	result.CostEstimate += float64(len(segments)) * costTranslationPerSegment

	// SYNTHESIZE
	failed, err := p.synthesizer.SynthesizeSegments(ctx, segments, workDir)
	if err != nil {
		return nil, nil, err
	}
	metrics.FailedSegments = failed
	if failed > 0 {
		result.AddWarning(fmt.Sprintf("%d of %d segments failed synthesis and play silent", failed, len(segments)))
	}
	for _, seg := range segments {
		result.CostEstimate += float64(len(seg.TranslatedText)) / 1000 * costSynthesisPerThousand
	}

	// SYNC_TIMING
	capped, err := p.syncTiming(ctx, segments, workDir, result)
	if err != nil {
		return nil, nil, err
	}
	metrics.CappedSegments = capped

	// ASSEMBLE_TRACK
	track, err := p.assembler.Assemble(ctx, segments, videoDuration, workDir)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "dubbing", "assemble track", "Track assembly failed", err)
	}

	// REMUX
	outputPath := dubbedPath(videoPath, outputDir)
	if backgroundTrack != "" {
		err = p.audio.MixAndReplaceAudio(ctx, videoPath, track, backgroundTrack, p.mixVolume, outputPath)
	} else {
		err = p.audio.ReplaceAudio(ctx, videoPath, track, outputPath)
	}
	if err != nil {
		return nil, nil, services.Wrap(services.ErrExternalTool, "dubbing", "remux", "Remux failed", err)
	}

	result.FinalPath = outputPath
	metrics.CostEstimate = result.CostEstimate
	if p.cleanupWorkDir {
		p.cleanupIntermediates(workDir)
	}
	return result, metrics, nil
}

// separateBackground extracts a higher-fidelity stereo track and runs vocal
// separation over it. Any failure degrades to dubbing without background
// audio; a warning is recorded but the run continues.
func (p *Pipeline) separateBackground(ctx context.Context, videoPath string, audioIndex int, workDir string, result *pipeline.Result) string {
	if p.separator == nil {
		return ""
	}
	hifiTrack := filepath.Join(workDir, "hifi_44k.wav")
	if err := p.audio.ExtractStereo44k(ctx, videoPath, audioIndex, hifiTrack); err != nil {
		p.logger.Warn("stereo extraction for separation failed", logging.Error(err))
		result.AddWarning(fmt.Sprintf("background separation skipped: %v", err))
		return ""
	}
	background, err := p.separator.SeparateBackground(ctx, hifiTrack, filepath.Join(workDir, "separated"))
	if err != nil {
		p.logger.Warn("vocal separation failed", logging.Error(err))
		result.AddWarning(fmt.Sprintf("background separation skipped: %v", err))
		return ""
	}
	return background
}

// syncTiming applies the timing reconciler's verdict to every synthesized
// clip, producing adjusted clips that fit their timeline slots.
func (p *Pipeline) syncTiming(ctx context.Context, segments []SpeechSegment, workDir string, result *pipeline.Result) (int, error) {
	capped := 0
	for i := range segments {
		seg := &segments[i]
		if seg.AudioPath == "" {
			continue
		}
		decision := ReconcileTiming(seg.Duration(), seg.AudioDuration)
		seg.SpeedFactor = decision.SpeedFactor
		seg.SilencePadding = decision.SilencePadding
		if decision.Warning != "" {
			capped++
			result.AddWarning(fmt.Sprintf("segment %d: %s", i, decision.Warning))
		}

		switch {
		case decision.SpeedFactor > 1:
			adjusted := filepath.Join(workDir, fmt.Sprintf("segment_%d_adjusted.wav", i))
			if err := p.audio.SpeedUp(ctx, seg.AudioPath, decision.SpeedFactor, adjusted); err != nil {
				return capped, services.Wrap(services.ErrExternalTool, "dubbing", "sync timing",
					fmt.Sprintf("Tempo adjustment failed for segment %d", i), err)
			}
			seg.AdjustedAudioPath = adjusted
		case decision.SilencePadding > 0:
			adjusted := filepath.Join(workDir, fmt.Sprintf("segment_%d_padded.wav", i))
			if err := p.audio.PadEnd(ctx, seg.AudioPath, decision.SilencePadding, adjusted); err != nil {
				return capped, services.Wrap(services.ErrExternalTool, "dubbing", "sync timing",
					fmt.Sprintf("Silence padding failed for segment %d", i), err)
			}
			seg.AdjustedAudioPath = adjusted
		}
	}
	return capped, nil
}

// buildSegments converts transcript segments to ordered, non-overlapping
// speech segments. Overlapping starts are clamped to the previous end so the
// assembler never has to place two clips in the same span.
func buildSegments(raw []stt.Segment) []SpeechSegment {
	segments := make([]SpeechSegment, 0, len(raw))
	var prevEnd float64
	for _, r := range raw {
		start, end := r.Start, r.End
		if start < prevEnd {
			start = prevEnd
		}
		if end <= start {
			continue
		}
		segments = append(segments, SpeechSegment{SourceText: r.Text, Start: start, End: end})
		prevEnd = end
	}
	return segments
}

func (p *Pipeline) cleanupIntermediates(workDir string) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		p.logger.Warn("workdir cleanup failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == "dubbed_track.wav" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(workDir, name)); err != nil {
			p.logger.Warn("workdir cleanup failed",
				logging.String("path", name), logging.Error(err))
		}
	}
}

func dubbedPath(videoPath, outputDir string) string {
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, textutil.SanitizeFileName(stem)+"_dubbed.mp4")
}
