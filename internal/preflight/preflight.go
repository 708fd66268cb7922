package preflight

import (
	"context"
	"fmt"

	"bookforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options tunes which checks RunAll performs.
type Options struct {
	// Offline skips checks that contact remote APIs.
	Offline bool
}

// RunAll executes the preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Chapters directory", cfg.Paths.ChaptersDir),
		CheckDirectoryAccess("Progress directory", cfg.Paths.ProgressDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
		if status.Available {
			result.Detail = status.Path
		} else {
			result.Detail = fmt.Sprintf("%s; %s", status.Detail, status.Description)
		}
		results = append(results, result)
	}

	results = append(results, CheckTTS("Narration TTS", cfg.GetTTS()))

	llmCfg := cfg.GetLLM()
	if opts.Offline {
		if llmCfg.APIKey == "" {
			results = append(results, Result{Name: "Chapter LLM", Detail: "API key missing"})
		} else {
			results = append(results, Result{Name: "Chapter LLM", Passed: true, Detail: "skipped (offline)"})
		}
		return results
	}
	results = append(results, CheckLLM(ctx, "Chapter LLM", llmCfg))
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
