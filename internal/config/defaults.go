package config

const (
	defaultConfigPath        = "~/.config/bookforge/config.toml"
	defaultChaptersDir       = "chapters"
	defaultProgressDir       = "progress"
	defaultStateDir          = "~/.local/share/bookforge"
	defaultLogDir            = "~/.local/share/bookforge/logs"
	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4"
	defaultLLMTemperature    = 0.7
	defaultLLMMaxTokens      = 4000
	defaultLLMTimeoutSeconds = 300
	defaultLLMReferer        = "https://github.com/bookforge/bookforge"
	defaultLLMTitle          = "bookforge"
	defaultTTSBaseURL        = "https://api.openai.com/v1"
	defaultTTSModel          = "tts-1"
	defaultTTSVoice          = "nova"
	defaultTTSFormat         = "mp3"
	defaultTTSSpeed          = 1.0
	defaultTTSMaxInputChars  = 4096
	defaultTTSTimeoutSeconds = 300
	defaultFFmpegBinary      = "ffmpeg"
	defaultSilenceFilter     = "silenceremove=start_periods=1:start_threshold=-50dB:stop_periods=-1:stop_duration=1:stop_threshold=-50dB"
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// audioExtensions maps supported speech response formats to file extensions.
var audioExtensions = map[string]string{
	"mp3":  "mp3",
	"opus": "opus",
	"aac":  "aac",
	"flac": "flac",
	"wav":  "wav",
	"pcm":  "pcm",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ChaptersDir: defaultChaptersDir,
			ProgressDir: defaultProgressDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			Temperature:     defaultLLMTemperature,
			MaxOutputTokens: defaultLLMMaxTokens,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			Referer:         defaultLLMReferer,
			Title:           defaultLLMTitle,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			Voice:          defaultTTSVoice,
			Format:         defaultTTSFormat,
			Speed:          defaultTTSSpeed,
			MaxInputChars:  defaultTTSMaxInputChars,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Concat: Concat{
			FFmpegBinary:  defaultFFmpegBinary,
			SilenceFilter: defaultSilenceFilter,
		},
		Journal: Journal{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
