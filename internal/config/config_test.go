package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bookforge/internal/config"
)

func clearOpenAIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_LLM_MODEL", "OPENAI_TTS_MODEL", "OPENAI_TTS_VOICE", "BOOKFORGE_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	clearOpenAIEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	workDir := t.TempDir()
	t.Chdir(workDir)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.ChaptersDir != filepath.Join(workDir, "chapters") {
		t.Fatalf("unexpected chapters dir: %q", cfg.Paths.ChaptersDir)
	}
	if cfg.Paths.ProgressDir != filepath.Join(workDir, "progress") {
		t.Fatalf("unexpected progress dir: %q", cfg.Paths.ProgressDir)
	}
	wantState := filepath.Join(tempHome, ".local", "share", "bookforge")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.GetTTS().APIKey != "test-key" {
		t.Fatalf("expected TTS key to fall back to LLM key, got %q", cfg.GetTTS().APIKey)
	}
	if cfg.LLM.Model != "gpt-4" || cfg.TTS.Model != "tts-1" || cfg.TTS.Voice != "nova" {
		t.Fatalf("unexpected model defaults: %+v %+v", cfg.LLM, cfg.TTS)
	}
	if cfg.AudioExtension() != "mp3" {
		t.Fatalf("unexpected audio extension %q", cfg.AudioExtension())
	}
	if !cfg.Journal.Enabled {
		t.Fatal("expected journal enabled by default")
	}
	if err := cfg.ValidateCredentials(); err != nil {
		t.Fatalf("ValidateCredentials returned error: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.ChaptersDir, cfg.Paths.ProgressDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearOpenAIEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "bookforge.toml")

	type payload struct {
		Paths struct {
			ChaptersDir string `toml:"chapters_dir"`
		} `toml:"paths"`
		LLM struct {
			APIKey string `toml:"api_key"`
			Model  string `toml:"model"`
		} `toml:"llm"`
		TTS struct {
			Voice  string `toml:"voice"`
			Format string `toml:"format"`
		} `toml:"tts"`
	}
	custom := payload{}
	custom.Paths.ChaptersDir = filepath.Join(tempDir, "out")
	custom.LLM.APIKey = "abc123"
	custom.LLM.Model = "gpt-4o"
	custom.TTS.Voice = " Alloy "
	custom.TTS.Format = "WAV"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.LLM.APIKey != "abc123" {
		t.Fatalf("expected key from file, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("expected model override, got %q", cfg.LLM.Model)
	}
	if cfg.TTS.Voice != "alloy" {
		t.Fatalf("expected normalized voice, got %q", cfg.TTS.Voice)
	}
	if cfg.AudioExtension() != "wav" {
		t.Fatalf("expected wav extension, got %q", cfg.AudioExtension())
	}
	if cfg.Paths.ChaptersDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected chapters dir %q", cfg.Paths.ChaptersDir)
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	clearOpenAIEnv(t)
	configPath := filepath.Join(t.TempDir(), "bookforge.toml")
	contents := "[llm]\napi_key = \"file-key\"\nmodel = \"file-model\"\n\n[tts]\nvoice = \"echo\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_LLM_MODEL", "env-model")
	t.Setenv("OPENAI_TTS_VOICE", "shimmer")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1/")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("expected model from env, got %q", cfg.LLM.Model)
	}
	if cfg.TTS.Voice != "shimmer" {
		t.Errorf("expected voice from env, got %q", cfg.TTS.Voice)
	}
	if cfg.LLM.BaseURL != "https://proxy.example.com/v1/chat/completions" {
		t.Errorf("unexpected llm base url %q", cfg.LLM.BaseURL)
	}
	if cfg.TTS.BaseURL != "https://proxy.example.com/v1/" {
		t.Errorf("unexpected tts base url %q", cfg.TTS.BaseURL)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearOpenAIEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envPath, []byte("OPENAI_TTS_MODEL=gpt-4o-mini-tts\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("OPENAI_TTS_MODEL") })
	os.Unsetenv("OPENAI_TTS_MODEL")

	if err := config.LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile returned error: %v", err)
	}
	if got := os.Getenv("OPENAI_TTS_MODEL"); got != "gpt-4o-mini-tts" {
		t.Fatalf("expected env file value, got %q", got)
	}

	if err := config.LoadEnvFile(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("expected error for explicit missing env file")
	}

	t.Chdir(t.TempDir())
	if err := config.LoadEnvFile(""); err != nil {
		t.Fatalf("expected missing default .env to be ignored, got %v", err)
	}
}

func TestValidateCredentialsRequiresKey(t *testing.T) {
	cfg := config.Default()
	err := cfg.ValidateCredentials()
	if err == nil {
		t.Fatal("expected error without api key")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected hint about OPENAI_API_KEY, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_openai_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	defaults := config.Default()
	if cfg.TTS.MaxInputChars != defaults.TTS.MaxInputChars {
		t.Fatalf("sample max_input_chars %d differs from default %d", cfg.TTS.MaxInputChars, defaults.TTS.MaxInputChars)
	}
	if cfg.Concat.SilenceFilter != defaults.Concat.SilenceFilter {
		t.Fatalf("sample silence filter differs from default: %q", cfg.Concat.SilenceFilter)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"temperature": func(c *config.Config) { c.LLM.Temperature = 3 },
		"max tokens":  func(c *config.Config) { c.LLM.MaxOutputTokens = -1 },
		"llm timeout": func(c *config.Config) { c.LLM.TimeoutSeconds = 0 },
		"format":      func(c *config.Config) { c.TTS.Format = "ogg" },
		"speed":       func(c *config.Config) { c.TTS.Speed = 10 },
		"max chars":   func(c *config.Config) { c.TTS.MaxInputChars = 10 },
		"log level":   func(c *config.Config) { c.Logging.Level = "trace" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
