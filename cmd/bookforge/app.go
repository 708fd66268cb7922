package main

import (
	"log/slog"

	"bookforge/internal/artifacts"
	"bookforge/internal/concat"
	"bookforge/internal/config"
	"bookforge/internal/generator"
	"bookforge/internal/journal"
	"bookforge/internal/logging"
	"bookforge/internal/metrics"
	"bookforge/internal/narration"
	"bookforge/internal/progress"
	"bookforge/internal/runner"
	"bookforge/internal/services/llm"
	"bookforge/internal/services/tts"
)

// app bundles the collaborators built from configuration.
type app struct {
	runner  *runner.Runner
	layout  artifacts.Layout
	store   *progress.Store
	journal *journal.Store
}

func (a *app) Close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

func newApp(cfg *config.Config, logger *slog.Logger, onChapter func(runner.Chapter)) (*app, error) {
	store, err := progress.NewStore(cfg.Paths.ProgressDir)
	if err != nil {
		return nil, err
	}
	layout := artifacts.NewLayout(cfg.Paths.ChaptersDir, cfg.AudioExtension())

	llmCfg := cfg.GetLLM()
	writer := llm.NewClient(llm.Config{
		APIKey:          llmCfg.APIKey,
		BaseURL:         llmCfg.BaseURL,
		Model:           llmCfg.Model,
		Referer:         llmCfg.Referer,
		Title:           llmCfg.Title,
		Temperature:     llmCfg.Temperature,
		MaxOutputTokens: llmCfg.MaxOutputTokens,
		TimeoutSeconds:  llmCfg.TimeoutSeconds,
	})

	ttsCfg := cfg.GetTTS()
	speech := tts.NewClient(tts.Config{
		APIKey:         ttsCfg.APIKey,
		BaseURL:        ttsCfg.BaseURL,
		Model:          ttsCfg.Model,
		Voice:          ttsCfg.Voice,
		Format:         ttsCfg.Format,
		Speed:          ttsCfg.Speed,
		TimeoutSeconds: ttsCfg.TimeoutSeconds,
	})

	a := &app{layout: layout, store: store}
	deps := runner.Dependencies{
		Generator:       generator.New(writer, logger),
		Narrator:        narration.New(speech, ttsCfg.MaxInputChars, logger),
		Concatenator:    concat.New(cfg.FFmpegBinary(), cfg.Concat.SilenceFilter, logger),
		Progress:        store,
		Layout:          layout,
		Metrics:         metrics.New(),
		Logger:          logger,
		MetricsTextfile: cfg.Metrics.TextfilePath,
		OnChapter:       onChapter,
	}
	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.JournalPath())
		if err != nil {
			logging.WarnWithContext(logger, "run journal unavailable", "journal_open_failed",
				logging.String("path", cfg.JournalPath()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete the journal file to start a fresh history"),
				logging.String(logging.FieldImpact, "run history is not recorded"),
			)
		} else {
			a.journal = j
			deps.Journal = j
		}
	}

	r, err := runner.New(deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.runner = r
	return a, nil
}
