package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credentials are
// checked separately by ValidateCredentials so read-only commands (status,
// history, concat) work without an API key.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials reports a configuration error when the API key needed
// for chapter generation and narration is missing.
func (c *Config) ValidateCredentials() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set OPENAI_API_KEY (environment or .env) or edit %s (create with 'bookforge config init')", defaultPath)
	}
	if strings.TrimSpace(c.GetTTS().APIKey) == "" {
		return errors.New("tts.api_key is required when llm.api_key is not set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxOutputTokens <= 0 {
		return errors.New("llm.max_output_tokens must be positive")
	}
	return ensurePositiveMap(map[string]int{
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateTTS() error {
	if _, ok := audioExtensions[c.TTS.Format]; !ok {
		formats := make([]string, 0, len(audioExtensions))
		for format := range audioExtensions {
			formats = append(formats, format)
		}
		sort.Strings(formats)
		return fmt.Errorf("tts.format %q is not supported (use one of %s)", c.TTS.Format, strings.Join(formats, ", "))
	}
	if c.TTS.Speed < 0.25 || c.TTS.Speed > 4 {
		return errors.New("tts.speed must be between 0.25 and 4.0")
	}
	if c.TTS.MaxInputChars < 64 {
		return errors.New("tts.max_input_chars must be at least 64")
	}
	return ensurePositiveMap(map[string]int{
		"tts.timeout_seconds": c.TTS.TimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported (use debug, info, warn, or error)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
