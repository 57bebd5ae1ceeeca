package ffprobe

import (
	"context"
	"errors"
	"testing"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "44100", "channels": 2}
  ],
  "format": {"filename": "post.mp4", "nb_streams": 2, "duration": "42.500000", "format_name": "mov,mp4"}
}`

func stubRunner(output string, err error) Runner {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(output), err
	}
}

func TestInspectParsesStreams(t *testing.T) {
	result, err := InspectWith(context.Background(), stubRunner(sampleOutput, nil), "", "post.mp4")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if got := result.AudioStreamCount(); got != 1 {
		t.Fatalf("AudioStreamCount = %d", got)
	}
	if got := result.FirstAudioStreamIndex(); got != 1 {
		t.Fatalf("FirstAudioStreamIndex = %d", got)
	}
	w, h, ok := result.VideoDimensions()
	if !ok || w != 1080 || h != 1920 {
		t.Fatalf("VideoDimensions = (%d, %d, %v)", w, h, ok)
	}
	if got := result.DurationSeconds(); got != 42.5 {
		t.Fatalf("DurationSeconds = %v", got)
	}
}

func TestInspectEmptyPath(t *testing.T) {
	if _, err := InspectWith(context.Background(), stubRunner(sampleOutput, nil), "", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectCommandFailure(t *testing.T) {
	_, err := InspectWith(context.Background(), stubRunner("boom", errors.New("exit 1")), "", "post.mp4")
	if err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestNoAudioStream(t *testing.T) {
	const videoOnly = `{"streams": [{"index": 0, "codec_type": "video"}], "format": {}}`
	result, err := InspectWith(context.Background(), stubRunner(videoOnly, nil), "", "clip.mp4")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if got := result.FirstAudioStreamIndex(); got != -1 {
		t.Fatalf("expected -1 for missing audio, got %d", got)
	}
}
