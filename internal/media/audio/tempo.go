package audio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// atempo accepts factors in [0.5, 2.0] per filter instance; larger factors
// are expressed by chaining instances.
const atempoMax = 2.0

// SpeedUp re-renders an audio clip at the given tempo factor (>1 shortens it)
// while preserving pitch.
func (t *Toolbox) SpeedUp(ctx context.Context, source string, factor float64, dest string) error {
	if factor <= 0 {
		return fmt.Errorf("speed up: invalid factor %v", factor)
	}
	args := []string{
		"-i", source,
		"-af", AtempoChain(factor),
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := t.ffmpegRun(ctx, args...); err != nil {
		return fmt.Errorf("ffmpeg atempo: %w", err)
	}
	return nil
}

// AtempoChain renders a tempo factor as one or more chained atempo filters,
// splitting factors beyond a single instance's bound across stages.
func AtempoChain(factor float64) string {
	if factor <= 0 {
		factor = 1
	}
	var stages []string
	for factor > atempoMax {
		stages = append(stages, "atempo="+formatFactor(atempoMax))
		factor /= atempoMax
	}
	stages = append(stages, "atempo="+formatFactor(factor))
	return strings.Join(stages, ",")
}

func formatFactor(factor float64) string {
	return strconv.FormatFloat(factor, 'f', -1, 64)
}
