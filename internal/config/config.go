package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and state directory configuration.
type Paths struct {
	ChaptersDir string `toml:"chapters_dir"`
	ProgressDir string `toml:"progress_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// LLM contains settings for the chapter-writing language model.
type LLM struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	Model           string  `toml:"model"`
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	Referer         string  `toml:"referer"`
	Title           string  `toml:"title"`
}

// TTS contains settings for chapter narration.
type TTS struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Voice          string  `toml:"voice"`
	Format         string  `toml:"format"`
	Speed          float64 `toml:"speed"`
	MaxInputChars  int     `toml:"max_input_chars"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Concat contains settings for merging chapter audio.
type Concat struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	SilenceFilter string `toml:"silence_filter"`
}

// Journal controls the SQLite run history.
type Journal struct {
	Enabled bool `toml:"enabled"`
}

// Metrics controls Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications controls ntfy push messages sent when a run ends.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bookforge.
//
// Configuration sections by subsystem:
//   - Paths: chapter artifacts, progress records, journal and logs
//   - LLM: chapter generation model and connection settings
//   - TTS: narration model, voice, and audio format
//   - Concat: ffmpeg binary and silence-trimming filter
//   - Journal: SQLite run history toggle
//   - Metrics: optional Prometheus textfile output
//   - Notifications: optional ntfy topic for run results
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	TTS           TTS           `toml:"tts"`
	Concat        Concat        `toml:"concat"`
	Journal       Journal       `toml:"journal"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error: defaults plus environment values are used instead. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. When path is
// empty, ".env" in the working directory is tried and silently skipped if absent.
func LoadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bookforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a generation run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ChaptersDir, c.Paths.ProgressDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the SQLite journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LogFilePath returns the persistent log file location, or "" when file
// logging is disabled.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "bookforge.log")
}

// FFmpegBinary returns the ffmpeg executable used for concatenation.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Concat.FFmpegBinary); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// AudioExtension returns the file extension (without dot) for narrated chapters.
func (c *Config) AudioExtension() string {
	return audioExtensions[c.TTS.Format]
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the connection settings for the chapter writer.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Referer         string
	Title           string
	Temperature     float64
	MaxOutputTokens int
	TimeoutSeconds  int
}

// GetLLM returns the language-model connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:          strings.TrimSpace(c.LLM.APIKey),
		BaseURL:         strings.TrimSpace(c.LLM.BaseURL),
		Model:           strings.TrimSpace(c.LLM.Model),
		Referer:         strings.TrimSpace(c.LLM.Referer),
		Title:           strings.TrimSpace(c.LLM.Title),
		Temperature:     c.LLM.Temperature,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
		TimeoutSeconds:  c.LLM.TimeoutSeconds,
	}
}

// TTSConfig contains the speech synthesis settings for the narrator.
type TTSConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	Format         string
	Speed          float64
	MaxInputChars  int
	TimeoutSeconds int
}

// GetTTS returns the narration settings. The API key falls back to [llm]
// when [tts] does not set its own.
func (c *Config) GetTTS() TTSConfig {
	cfg := TTSConfig{
		APIKey:         strings.TrimSpace(c.TTS.APIKey),
		BaseURL:        strings.TrimSpace(c.TTS.BaseURL),
		Model:          strings.TrimSpace(c.TTS.Model),
		Voice:          strings.TrimSpace(c.TTS.Voice),
		Format:         strings.TrimSpace(c.TTS.Format),
		Speed:          c.TTS.Speed,
		MaxInputChars:  c.TTS.MaxInputChars,
		TimeoutSeconds: c.TTS.TimeoutSeconds,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(c.LLM.APIKey)
	}
	return cfg
}
