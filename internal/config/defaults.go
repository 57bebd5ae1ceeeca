package config

const (
	defaultVisionBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultVisionModel       = "google/gemini-2.5-flash"
	defaultImageEditBaseURL  = "https://api.bfl.ai/v1"
	defaultImageEditModel    = "flux-kontext-pro"
	defaultTranscribeBaseURL = "https://api.openai.com/v1/audio/transcriptions"
	defaultTranscribeModel   = "whisper-1"
	defaultTTSBaseURL        = "https://api.elevenlabs.io/v1"
	defaultSeparationCommand = "demucs"
)

// Default produces the baseline configuration used before a config file or
// environment overrides are applied.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   "~/.local/share/redub/work",
			OutputDir: "~/.local/share/redub/output",
			LogDir:    "~/.local/share/redub/logs",
		},
		Workflow: Workflow{
			VideoCap:        5,
			PollInterval:    5,
			CleanupWorkDirs: true,
		},
		OCR: OCR{
			MinRegionPercent: 4.0,
			TimeoutSeconds:   60,
		},
		Vision: Vision{
			BaseURL:        defaultVisionBaseURL,
			Model:          defaultVisionModel,
			TimeoutSeconds: 120,
			BatchSize:      8,
		},
		ImageEdit: ImageEdit{
			BaseURL:        defaultImageEditBaseURL,
			Model:          defaultImageEditModel,
			TimeoutSeconds: 300,
			MaxAttempts:    2,
			MinQuality:     0.7,
		},
		Overlay: Overlay{
			MinFontSize:  14,
			PaddingPx:    8,
			PlateOpacity: 0.6,
		},
		Transcribe: Transcribe{
			BaseURL:        defaultTranscribeBaseURL,
			Model:          defaultTranscribeModel,
			MaxUploadMB:    25,
			TimeoutSeconds: 300,
			RetryAttempts:  3,
		},
		Translate: Translate{
			SourceLanguage: "zh",
			TargetLanguage: "en",
			WordsPerSecond: 2.5,
		},
		TTS: TTS{
			BaseURL:           defaultTTSBaseURL,
			Stability:         0.5,
			Similarity:        0.75,
			RequestIntervalMS: 1000,
			TimeoutSeconds:    120,
		},
		Separation: Separation{
			Enabled:   true,
			Command:   defaultSeparationCommand,
			MixVolume: 0.6,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
