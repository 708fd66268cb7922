package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bookforge/internal/config"
	"bookforge/internal/testsupport"
)

// fakeAPI serves chat completions and speech synthesis for CLI tests.
type fakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	chapters int
	speech   int
	// replyFor overrides the chat reply for a 1-based chat call number.
	replyFor map[int]string
	notices  []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{replyFor: map[int]string{}}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch r.URL.Path {
	case "/chat/completions":
		a.chapters++
		reply, ok := a.replyFor[a.chapters]
		if !ok {
			reply = fmt.Sprintf("[chapter]\nChapter body %d.\n[progress]\nCheckpoint after call %d.", a.chapters, a.chapters)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"finish_reason": "stop",
				"message":       map[string]any{"content": reply},
			}},
		})
	case "/v1/audio/speech":
		a.speech++
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3-audio"))
	case "/ntfy":
		body, _ := io.ReadAll(r.Body)
		a.notices = append(a.notices, r.Header.Get("Title")+"|"+string(body))
	default:
		http.NotFound(w, r)
	}
}

func (a *fakeAPI) notifications() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.notices...)
}

func (a *fakeAPI) chatCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chapters
}

type cliTestEnv struct {
	cfg        *config.Config
	api        *fakeAPI
	configPath string
	specPath   string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_LLM_MODEL", "OPENAI_TTS_MODEL", "OPENAI_TTS_VOICE", "BOOKFORGE_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	api := newFakeAPI(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPIKey("test-key"),
		testsupport.WithEndpoints(api.server.URL+"/chat/completions", api.server.URL+"/v1"),
	)
	base := testsupport.BaseDir(cfg)
	cfg.Concat.FFmpegBinary = writeFakeFFmpeg(t, base)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "bookforge.toml")
	writeTestConfig(t, configPath, cfg)

	specPath := filepath.Join(base, "quantum_detective.spec.md")
	if err := os.WriteFile(specPath, []byte("A detective solves crimes across parallel timelines.\n"), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		api:        api,
		configPath: configPath,
		specPath:   specPath,
		baseDir:    base,
	}
}

// writeFakeFFmpeg installs a script that writes its last argument, which is
// where the concatenator expects the merged file.
func writeFakeFFmpeg(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "bin", "ffmpeg")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	script := "#!/bin/sh\nfor last; do :; done\nprintf 'merged' > \"$last\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return path
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
chapters_dir = %q
progress_dir = %q
state_dir = %q
log_dir = %q

[llm]
api_key = %q
base_url = %q

[tts]
base_url = %q

[concat]
ffmpeg_binary = %q
silence_filter = "none"

[logging]
level = %q
`,
		cfg.Paths.ChaptersDir,
		cfg.Paths.ProgressDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.TTS.BaseURL,
		cfg.Concat.FFmpegBinary,
		cfg.Logging.Level,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
