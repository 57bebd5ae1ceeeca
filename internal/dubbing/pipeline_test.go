package dubbing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"redub/internal/media/audio"
	"redub/internal/services/stt"
)

type scriptedTranscriber struct {
	transcript *stt.Transcript
	err        error
	gotPath    string
	gotHint    string
}

func (s *scriptedTranscriber) Transcribe(_ context.Context, audioPath, languageHint string) (*stt.Transcript, error) {
	s.gotPath = audioPath
	s.gotHint = languageHint
	return s.transcript, s.err
}

type scriptedSeparator struct {
	background string
	err        error
	calls      int
}

func (s *scriptedSeparator) SeparateBackground(context.Context, string, string) (string, error) {
	s.calls++
	return s.background, s.err
}

// pipelineToolbox records ffmpeg calls, creates remux temp outputs so the
// rename step succeeds, and answers probes from a path-substring table.
func pipelineToolbox(calls *[][]string, probes map[string]string) *audio.Toolbox {
	runner := func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, append([]string{name}, args...))
		if last := args[len(args)-1]; strings.HasSuffix(last, ".tmp") {
			return os.WriteFile(last, []byte("muxed"), 0o644)
		}
		return nil
	}
	probe := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		path := args[len(args)-1]
		for key, response := range probes {
			if strings.Contains(path, key) {
				return []byte(response), nil
			}
		}
		return []byte(`{"format":{"duration":"1.0"}}`), nil
	}
	return audio.NewToolbox().WithRunner(runner).WithProbeRunner(probe)
}

const videoProbeJSON = `{
	"streams": [
		{"index": 0, "codec_type": "video", "width": 1280, "height": 720},
		{"index": 1, "codec_type": "audio", "channels": 2}
	],
	"format": {"duration": "10.0"}
}`

func newTestPipeline(t *testing.T, toolbox *audio.Toolbox, transcriber Transcriber, separator BackgroundSeparator, clipDurations map[int]float64) *Pipeline {
	t.Helper()
	model := &scriptedModel{responses: []string{
		`{"translation":"hello"}`,
		`{"translation":"goodbye"}`,
		`{"translation":"third"}`,
	}}
	probe := func(_ context.Context, path string) (float64, error) {
		for i, d := range clipDurations {
			if strings.Contains(path, fmt.Sprintf("segment_%d.wav", i)) {
				return d, nil
			}
		}
		return 1.0, nil
	}
	return NewPipeline(PipelineOptions{
		Audio:          toolbox,
		Transcriber:    transcriber,
		Translator:     NewTranslator(model, "Chinese", "English", 2.5, nil),
		Synthesizer:    NewSynthesizer(&stubTTS{}, &countingPacer{}, probe, toolbox.TranscodeToWAV, nil),
		Assembler:      NewAssembler(toolbox, nil),
		Separator:      separator,
		SourceLangCode: "zh",
		MixVolume:      0.6,
	})
}

func testVideoDirs(t *testing.T) (videoPath, workDir, outputDir string) {
	t.Helper()
	root := t.TempDir()
	videoPath = filepath.Join(root, "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	workDir = filepath.Join(root, "work")
	outputDir = filepath.Join(root, "out")
	for _, dir := range []string{workDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return videoPath, workDir, outputDir
}

func TestPipelineProcessEndToEnd(t *testing.T) {
	var calls [][]string
	toolbox := pipelineToolbox(&calls, map[string]string{
		".mp4":               videoProbeJSON,
		"segment_0.wav":      `{"format":{"duration":"2.9"}}`,
		"segment_1_adjusted": `{"format":{"duration":"3.33"}}`,
	})
	transcriber := &scriptedTranscriber{transcript: &stt.Transcript{Segments: []stt.Segment{
		{Text: "你好", Start: 0, End: 3},
		{Text: "再见", Start: 3, End: 6},
	}}}
	// Segment 0 fits its slot; segment 1 needs 5.0s in a 3.0s slot.
	pipeline := newTestPipeline(t, toolbox, transcriber, nil, map[int]float64{0: 2.9, 1: 5.0})

	videoPath, workDir, outputDir := testVideoDirs(t)
	result, metrics, err := pipeline.Process(context.Background(), videoPath, workDir, outputDir)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	wantFinal := filepath.Join(outputDir, "clip_dubbed.mp4")
	if result.FinalPath != wantFinal {
		t.Fatalf("final path = %q, want %q", result.FinalPath, wantFinal)
	}
	if _, err := os.Stat(wantFinal); err != nil {
		t.Fatalf("final file missing: %v", err)
	}
	if metrics.SegmentCount != 2 || metrics.VideoDuration != 10.0 {
		t.Fatalf("metrics = %+v", metrics)
	}
	if metrics.CappedSegments != 1 {
		t.Fatalf("capped = %d, want 1 (ratio 1.67 capped)", metrics.CappedSegments)
	}
	warningText := strings.Join(result.Warnings, "; ")
	if !strings.Contains(warningText, "1.67") {
		t.Fatalf("warnings = %q, want capped ratio", warningText)
	}
	if transcriber.gotHint != "zh" || !strings.Contains(transcriber.gotPath, "speech_16k.wav") {
		t.Fatalf("transcriber got %q hint %q", transcriber.gotPath, transcriber.gotHint)
	}

	// Segment 1 must have been sped up at the cap.
	tempoCall := findCall(calls, "atempo")
	if tempoCall == nil {
		t.Fatal("expected a tempo adjustment call")
	}
	if !strings.Contains(strings.Join(tempoCall, " "), "atempo=1.5") {
		t.Fatalf("tempo call = %v, want 1.5x cap", tempoCall)
	}
	// PCM output must land in a WAV container, not an MP3-named file.
	if dest := tempoCall[len(tempoCall)-1]; !strings.HasSuffix(dest, ".wav") {
		t.Fatalf("tempo output = %q, want wav", dest)
	}
	// Speech clips are re-encoded to WAV before assembly.
	if findCall(calls, "segment_1.wav") == nil {
		t.Fatal("expected speech clips transcoded to wav")
	}
	// Straight stream substitution without background: no amix.
	if findCall(calls, "amix") != nil {
		t.Fatal("unexpected mix without separator")
	}
	if findCall(calls, "-c:v copy") == nil {
		t.Fatal("video stream must be copied, not re-encoded")
	}
	if result.CostEstimate <= 0 {
		t.Fatalf("cost = %v, want positive", result.CostEstimate)
	}
}

func TestPipelineMixesBackgroundWhenSeparated(t *testing.T) {
	var calls [][]string
	toolbox := pipelineToolbox(&calls, map[string]string{".mp4": videoProbeJSON})
	transcriber := &scriptedTranscriber{transcript: &stt.Transcript{Segments: []stt.Segment{
		{Text: "你好", Start: 0, End: 3},
	}}}
	separator := &scriptedSeparator{background: "/tmp/no_vocals.wav"}
	pipeline := newTestPipeline(t, toolbox, transcriber, separator, map[int]float64{0: 3.0})

	videoPath, workDir, outputDir := testVideoDirs(t)
	result, metrics, err := pipeline.Process(context.Background(), videoPath, workDir, outputDir)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if separator.calls != 1 || !metrics.SeparationUsed {
		t.Fatalf("separator calls = %d, used = %v", separator.calls, metrics.SeparationUsed)
	}
	mixCall := findCall(calls, "amix")
	if mixCall == nil {
		t.Fatal("expected an amix remux")
	}
	if !strings.Contains(strings.Join(mixCall, " "), "volume=0.60") {
		t.Fatalf("mix call = %v, want attenuated background", mixCall)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("warnings = %v, want none", result.Warnings)
	}
}

func TestPipelineRecordsTranslationPassthrough(t *testing.T) {
	var calls [][]string
	toolbox := pipelineToolbox(&calls, map[string]string{".mp4": videoProbeJSON})
	transcriber := &scriptedTranscriber{transcript: &stt.Transcript{Segments: []stt.Segment{
		{Text: "你好", Start: 0, End: 3},
	}}}
	model := &scriptedModel{errs: []error{errors.New("model down")}}
	probe := func(context.Context, string) (float64, error) { return 3.0, nil }
	pipe := NewPipeline(PipelineOptions{
		Audio:          toolbox,
		Transcriber:    transcriber,
		Translator:     NewTranslator(model, "Chinese", "English", 2.5, nil),
		Synthesizer:    NewSynthesizer(&stubTTS{}, &countingPacer{}, probe, toolbox.TranscodeToWAV, nil),
		Assembler:      NewAssembler(toolbox, nil),
		SourceLangCode: "zh",
		MixVolume:      0.6,
	})

	videoPath, workDir, outputDir := testVideoDirs(t)
	result, metrics, err := pipe.Process(context.Background(), videoPath, workDir, outputDir)
	if err != nil {
		t.Fatalf("Process should pass the source through, got: %v", err)
	}
	if metrics.UntranslatedSegments != 1 {
		t.Fatalf("untranslated = %d, want 1", metrics.UntranslatedSegments)
	}
	if !strings.Contains(strings.Join(result.Warnings, "; "), "failed translation") {
		t.Fatalf("warnings = %v, want a passthrough warning", result.Warnings)
	}
}

func TestPipelineSeparationFailureDegrades(t *testing.T) {
	var calls [][]string
	toolbox := pipelineToolbox(&calls, map[string]string{".mp4": videoProbeJSON})
	transcriber := &scriptedTranscriber{transcript: &stt.Transcript{Segments: []stt.Segment{
		{Text: "你好", Start: 0, End: 3},
	}}}
	separator := &scriptedSeparator{err: errors.New("tool crashed")}
	pipeline := newTestPipeline(t, toolbox, transcriber, separator, map[int]float64{0: 3.0})

	videoPath, workDir, outputDir := testVideoDirs(t)
	result, metrics, err := pipeline.Process(context.Background(), videoPath, workDir, outputDir)
	if err != nil {
		t.Fatalf("Process should degrade, got: %v", err)
	}
	if metrics.SeparationUsed {
		t.Fatal("separation should be marked unused")
	}
	if findCall(calls, "amix") != nil {
		t.Fatal("mix must be skipped without a background track")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a separation warning")
	}
}

func TestPipelineZeroSegmentsIsTerminal(t *testing.T) {
	var calls [][]string
	toolbox := pipelineToolbox(&calls, map[string]string{".mp4": videoProbeJSON})
	transcriber := &scriptedTranscriber{transcript: &stt.Transcript{}}
	pipeline := newTestPipeline(t, toolbox, transcriber, nil, nil)

	videoPath, workDir, outputDir := testVideoDirs(t)
	_, _, err := pipeline.Process(context.Background(), videoPath, workDir, outputDir)
	if err == nil || !strings.Contains(err.Error(), "no speech") {
		t.Fatalf("err = %v, want terminal no-speech error", err)
	}
}

func TestPipelineRejectsVideoWithoutAudio(t *testing.T) {
	var calls [][]string
	toolbox := pipelineToolbox(&calls, map[string]string{
		".mp4": `{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"10.0"}}`,
	})
	pipeline := newTestPipeline(t, toolbox, &scriptedTranscriber{}, nil, nil)

	videoPath, workDir, outputDir := testVideoDirs(t)
	if _, _, err := pipeline.Process(context.Background(), videoPath, workDir, outputDir); err == nil {
		t.Fatal("expected error for video without audio stream")
	}
}

func TestDubbedPathSanitizesStem(t *testing.T) {
	got := dubbedPath("/in/sale: 50% off*.mp4", "/out")
	want := filepath.Join("/out", "sale- 50% off-_dubbed.mp4")
	if got != want {
		t.Fatalf("dubbedPath = %q, want %q", got, want)
	}
}

func TestBuildSegmentsClampsOverlaps(t *testing.T) {
	segments := buildSegments([]stt.Segment{
		{Text: "a", Start: 0, End: 2},
		{Text: "b", Start: 1.5, End: 4},
		{Text: "swallowed", Start: 2.0, End: 4.0},
		{Text: "c", Start: 5, End: 6},
	})
	if len(segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(segments))
	}
	if segments[1].Start != 2.0 || segments[1].End != 4.0 {
		t.Fatalf("clamped segment = %+v", segments[1])
	}
	if segments[2].SourceText != "c" {
		t.Fatalf("last segment = %+v", segments[2])
	}
}
