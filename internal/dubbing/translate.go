package dubbing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"redub/internal/logging"
	"redub/internal/services/vision"
	"redub/internal/textutil"
)

// TextModel issues text-only JSON completions.
type TextModel interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, images ...vision.Image) (string, error)
}

// Translator translates speech segments under a duration-derived word
// budget. The budget keeps synthesized audio near the original segment
// length so the timing reconciler rarely has to cap compression.
type Translator struct {
	model          TextModel
	sourceLanguage string
	targetLanguage string
	wordsPerSecond float64
	logger         *slog.Logger
}

// NewTranslator constructs a translator.
func NewTranslator(model TextModel, sourceLanguage, targetLanguage string, wordsPerSecond float64, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.5
	}
	return &Translator{
		model:          model,
		sourceLanguage: sourceLanguage,
		targetLanguage: targetLanguage,
		wordsPerSecond: wordsPerSecond,
		logger:         logger,
	}
}

// TranslateSegments fills TranslatedText on every segment in place. A
// segment whose translation fails passes its source text through unchanged
// rather than aborting the run. It returns the number of segments that fell
// back to their source text.
func (t *Translator) TranslateSegments(ctx context.Context, segments []SpeechSegment) int {
	failed := 0
	for i := range segments {
		seg := &segments[i]
		translated, err := t.translateOne(ctx, seg.SourceText, seg.Duration())
		if err != nil {
			t.logger.Warn("segment translation failed, passing source through",
				logging.Int("segment", i), logging.Error(err))
			seg.TranslatedText = seg.SourceText
			failed++
			continue
		}
		seg.TranslatedText = translated
	}
	return failed
}

func (t *Translator) translateOne(ctx context.Context, text string, duration float64) (string, error) {
	maxWords := t.wordBudget(duration)
	prompt := fmt.Sprintf(
		"Translate the following %s speech to natural spoken %s using at most %d words. Keep the meaning, drop filler if needed to fit. Respond with JSON only: {\"translation\":\"<text>\"}\n\nSpeech: %q",
		t.sourceLanguage, t.targetLanguage, maxWords, text)

	content, err := t.model.CompleteJSON(ctx,
		"You translate speech for dubbing. Respond with JSON only.", prompt)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := vision.DecodeModelJSON(content, &parsed); err != nil {
		return "", fmt.Errorf("parse translation: %w", err)
	}
	translation := strings.TrimSpace(parsed.Translation)
	if translation == "" {
		return "", fmt.Errorf("empty translation")
	}
	// Hard ceiling: the model occasionally ignores the word limit.
	return textutil.TruncateToWords(translation, maxWords), nil
}

func (t *Translator) wordBudget(duration float64) int {
	budget := int(math.Floor(duration * t.wordsPerSecond))
	if budget < 1 {
		budget = 1
	}
	return budget
}
