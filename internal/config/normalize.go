package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// environment lists the variables that override file settings. Names follow
// the OpenAI SDK conventions so an existing .env keeps working.
type environment struct {
	APIKey   string `envconfig:"OPENAI_API_KEY"`
	BaseURL  string `envconfig:"OPENAI_BASE_URL"`
	LLMModel string `envconfig:"OPENAI_LLM_MODEL"`
	TTSModel string `envconfig:"OPENAI_TTS_MODEL"`
	TTSVoice string `envconfig:"OPENAI_TTS_VOICE"`
	LogLevel string `envconfig:"BOOKFORGE_LOG_LEVEL"`
}

func (c *Config) normalize() error {
	if err := c.applyEnvironment(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeConcat()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvironment() error {
	var env environment
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if value := strings.TrimSpace(env.APIKey); value != "" {
		c.LLM.APIKey = value
	}
	if value := strings.TrimSpace(env.BaseURL); value != "" {
		c.LLM.BaseURL = strings.TrimRight(value, "/") + "/chat/completions"
		c.TTS.BaseURL = value
	}
	if value := strings.TrimSpace(env.LLMModel); value != "" {
		c.LLM.Model = value
	}
	if value := strings.TrimSpace(env.TTSModel); value != "" {
		c.TTS.Model = value
	}
	if value := strings.TrimSpace(env.TTSVoice); value != "" {
		c.TTS.Voice = value
	}
	if value := strings.TrimSpace(env.LogLevel); value != "" {
		c.Logging.Level = value
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ChaptersDir) == "" {
		c.Paths.ChaptersDir = defaultChaptersDir
	}
	if c.Paths.ChaptersDir, err = expandPath(c.Paths.ChaptersDir); err != nil {
		return fmt.Errorf("paths.chapters_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProgressDir) == "" {
		c.Paths.ProgressDir = defaultProgressDir
	}
	if c.Paths.ProgressDir, err = expandPath(c.Paths.ProgressDir); err != nil {
		return fmt.Errorf("paths.progress_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.MaxOutputTokens == 0 {
		c.LLM.MaxOutputTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
}

func (c *Config) normalizeTTS() {
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.Voice = strings.ToLower(strings.TrimSpace(c.TTS.Voice))
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	c.TTS.Format = strings.ToLower(strings.TrimSpace(c.TTS.Format))
	if c.TTS.Format == "" {
		c.TTS.Format = defaultTTSFormat
	}
	if c.TTS.Speed == 0 {
		c.TTS.Speed = defaultTTSSpeed
	}
	if c.TTS.MaxInputChars == 0 {
		c.TTS.MaxInputChars = defaultTTSMaxInputChars
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeConcat() {
	c.Concat.FFmpegBinary = strings.TrimSpace(c.Concat.FFmpegBinary)
	if c.Concat.FFmpegBinary == "" {
		c.Concat.FFmpegBinary = defaultFFmpegBinary
	}
	c.Concat.SilenceFilter = strings.TrimSpace(c.Concat.SilenceFilter)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
