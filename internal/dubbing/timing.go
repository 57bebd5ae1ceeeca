package dubbing

import "fmt"

// Timing policy bounds. Ratios within the tolerance band play as-is; above
// it the audio is sped up, capped at maxSpeedFactor; below it the clip is
// padded with trailing silence.
const (
	timingToleranceLow  = 0.95
	timingToleranceHigh = 1.05
	maxSpeedFactor      = 1.5
)

// TimingDecision is the reconciler's verdict for one segment.
type TimingDecision struct {
	// SpeedFactor > 1 means the clip must be compressed by that factor.
	// 1 means no tempo change.
	SpeedFactor float64
	// SilencePadding is trailing silence to append, in seconds.
	SilencePadding float64
	// Warning is set when the needed compression exceeded the cap.
	Warning string
}

// ReconcileTiming compares a synthesized clip's duration to its segment's
// slot on the original timeline and decides how to make it fit.
func ReconcileTiming(originalDuration, audioDuration float64) TimingDecision {
	if originalDuration <= 0 || audioDuration <= 0 {
		return TimingDecision{SpeedFactor: 1}
	}
	ratio := audioDuration / originalDuration
	switch {
	case ratio >= timingToleranceLow && ratio <= timingToleranceHigh:
		return TimingDecision{SpeedFactor: 1}
	case ratio <= maxSpeedFactor:
		if ratio > timingToleranceHigh {
			return TimingDecision{SpeedFactor: ratio}
		}
		// ratio < 0.95: the clip runs short; pad the difference.
		return TimingDecision{SpeedFactor: 1, SilencePadding: originalDuration - audioDuration}
	default:
		return TimingDecision{
			SpeedFactor: maxSpeedFactor,
			Warning: fmt.Sprintf(
				"audio overruns slot even at %.1fx speed (needed %.2fx for %.2fs audio in %.2fs slot)",
				maxSpeedFactor, ratio, audioDuration, originalDuration),
		}
	}
}
