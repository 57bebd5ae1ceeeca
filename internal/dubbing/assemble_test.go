package dubbing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"redub/internal/media/audio"
)

// fakeToolbox builds an audio toolbox whose ffmpeg calls are recorded and
// whose probes answer from a duration table keyed by path substring.
func fakeToolbox(calls *[][]string, durations map[string]float64) *audio.Toolbox {
	runner := func(_ context.Context, name string, args ...string) error {
		*calls = append(*calls, append([]string{name}, args...))
		return nil
	}
	probe := func(_ context.Context, _ string, args ...string) ([]byte, error) {
		path := args[len(args)-1]
		for key, d := range durations {
			if strings.Contains(path, key) {
				return []byte(fmt.Sprintf(`{"format":{"duration":"%f"}}`, d)), nil
			}
		}
		return []byte(`{"format":{"duration":"0"}}`), nil
	}
	return audio.NewToolbox().WithRunner(runner).WithProbeRunner(probe)
}

func findCall(calls [][]string, fragment string) []string {
	for _, call := range calls {
		if strings.Contains(strings.Join(call, " "), fragment) {
			return call
		}
	}
	return nil
}

func TestAssembleAlternatesSilenceAndSpeech(t *testing.T) {
	var calls [][]string
	toolbox := fakeToolbox(&calls, map[string]float64{
		"clip_a": 2.0,
		"clip_b": 1.5,
	})
	assembler := NewAssembler(toolbox, nil)

	segments := []SpeechSegment{
		{Start: 1.0, End: 3.0, AudioPath: "/tmp/clip_a.wav"},
		{Start: 5.0, End: 6.5, AudioPath: "/tmp/clip_b.wav"},
	}
	track, err := assembler.Assemble(context.Background(), segments, 10.0, t.TempDir())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.HasSuffix(track, "dubbed_track.wav") {
		t.Fatalf("track = %q", track)
	}

	// Leading gap 1.0s, inter-segment gap 2.0s, trailing 3.5s: three silence
	// clips around the two speech clips.
	silenceCalls := 0
	for _, call := range calls {
		if strings.Contains(strings.Join(call, " "), "anullsrc") {
			silenceCalls++
		}
	}
	if silenceCalls != 3 {
		t.Fatalf("silence clips = %d, want 3", silenceCalls)
	}
	if findCall(calls, "concat") == nil {
		t.Fatal("expected a concat invocation")
	}
}

func TestAssembleFillsFailedSegmentWithSilence(t *testing.T) {
	var calls [][]string
	toolbox := fakeToolbox(&calls, nil)
	assembler := NewAssembler(toolbox, nil)

	segments := []SpeechSegment{
		{Start: 0, End: 2.0}, // no audio: synthesis failed
	}
	if _, err := assembler.Assemble(context.Background(), segments, 5.0, t.TempDir()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Slot silence 2.0s plus trailing silence 3.0s.
	silenceDurations := []string{}
	for _, call := range calls {
		joined := strings.Join(call, " ")
		if idx := strings.Index(joined, "anullsrc"); idx >= 0 {
			silenceDurations = append(silenceDurations, joined)
		}
	}
	if len(silenceDurations) != 2 {
		t.Fatalf("silence clips = %d, want 2", len(silenceDurations))
	}
	if !strings.Contains(silenceDurations[0], "2.000") {
		t.Fatalf("slot silence = %q, want 2.000s", silenceDurations[0])
	}
	if !strings.Contains(silenceDurations[1], "3.000") {
		t.Fatalf("trailing silence = %q, want 3.000s", silenceDurations[1])
	}
}

func TestAssembleEmptySegmentsProducesFullSilence(t *testing.T) {
	var calls [][]string
	toolbox := fakeToolbox(&calls, nil)
	assembler := NewAssembler(toolbox, nil)

	if _, err := assembler.Assemble(context.Background(), nil, 7.25, t.TempDir()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	call := findCall(calls, "anullsrc")
	if call == nil {
		t.Fatal("expected one full-length silence clip")
	}
	if !strings.Contains(strings.Join(call, " "), "7.250") {
		t.Fatalf("silence call = %v, want full video duration", call)
	}
}

func TestAssemblePrefersAdjustedClip(t *testing.T) {
	var calls [][]string
	toolbox := fakeToolbox(&calls, map[string]float64{"adjusted": 3.0})
	assembler := NewAssembler(toolbox, nil)

	segments := []SpeechSegment{{
		Start: 0, End: 3.0,
		AudioPath:         "/tmp/raw.wav",
		AdjustedAudioPath: "/tmp/raw_adjusted.wav",
	}}
	if _, err := assembler.Assemble(context.Background(), segments, 3.0, t.TempDir()); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if call := findCall(calls, "concat"); call == nil {
		t.Fatal("expected concat invocation")
	}
	// The raw clip is never probed; only the adjusted one is.
	for _, call := range calls {
		if strings.Contains(strings.Join(call, " "), "/tmp/raw.wav ") {
			t.Fatalf("raw clip used: %v", call)
		}
	}
}

func TestAssembleRejectsNonPositiveDuration(t *testing.T) {
	assembler := NewAssembler(fakeToolbox(new([][]string), nil), nil)
	if _, err := assembler.Assemble(context.Background(), nil, 0, t.TempDir()); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
