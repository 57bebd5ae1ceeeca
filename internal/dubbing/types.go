// Package dubbing implements the video re-dubbing pipeline: audio
// extraction, optional vocal separation, transcription, translation, speech
// synthesis, timing reconciliation, track assembly, and remuxing.
package dubbing

// SpeechSegment is one contiguous span of source speech anchored to the
// original video timeline. Start and End never change after transcription;
// the synthesized audio is stretched or padded to fit them.
type SpeechSegment struct {
	SourceText     string
	TranslatedText string
	Start          float64
	End            float64

	// Synthesis and timing augmentation. AudioPath is empty when synthesis
	// failed for this segment; the assembler substitutes silence.
	AudioPath         string
	AudioDuration     float64
	AdjustedAudioPath string
	SpeedFactor       float64
	SilencePadding    float64
	SynthesisError    string
}

// Duration is the segment's span on the original timeline.
func (s SpeechSegment) Duration() float64 {
	return s.End - s.Start
}

// Metrics summarizes one dubbing run for reporting.
type Metrics struct {
	VideoDuration        float64
	SegmentCount         int
	UntranslatedSegments int
	FailedSegments       int
	CappedSegments       int
	SeparationUsed       bool
	CostEstimate         float64
}
