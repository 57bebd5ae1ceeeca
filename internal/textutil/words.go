package textutil

import (
	"strings"
	"unicode"
)

// WordCount counts words in mixed-script text. Ideographic characters (Han,
// Hiragana, Katakana) each count as one word; everything else counts by
// whitespace-delimited runs.
func WordCount(text string) int {
	count := 0
	inRun := false
	for _, r := range text {
		switch {
		case isIdeograph(r):
			if inRun {
				count++
				inRun = false
			}
			count++
		case unicode.IsSpace(r):
			if inRun {
				count++
				inRun = false
			}
		default:
			inRun = true
		}
	}
	if inRun {
		count++
	}
	return count
}

// TruncateToWords trims text to at most maxWords words, preserving original
// spacing within the kept prefix. Non-positive maxWords returns the empty
// string; text already within budget is returned unchanged.
func TruncateToWords(text string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}
	if WordCount(text) <= maxWords {
		return text
	}

	count := 0
	runStart := -1
	for i, r := range text {
		switch {
		case isIdeograph(r):
			if runStart >= 0 {
				count++
				runStart = -1
				if count >= maxWords {
					return strings.TrimSpace(text[:i])
				}
			}
			count++
			if count >= maxWords {
				return strings.TrimSpace(text[:i+len(string(r))])
			}
		case unicode.IsSpace(r):
			if runStart >= 0 {
				count++
				runStart = -1
				if count >= maxWords {
					return strings.TrimSpace(text[:i])
				}
			}
		default:
			if runStart < 0 {
				runStart = i
			}
		}
	}
	return text
}

func isIdeograph(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
