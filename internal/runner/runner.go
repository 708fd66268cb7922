package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookforge/internal/artifacts"
	"bookforge/internal/bookspec"
	"bookforge/internal/concat"
	"bookforge/internal/generator"
	"bookforge/internal/journal"
	"bookforge/internal/logging"
	"bookforge/internal/metrics"
	"bookforge/internal/narration"
	"bookforge/internal/progress"
	"bookforge/internal/services"
)

// ChapterGenerator writes one chapter.
type ChapterGenerator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Chapter, error)
}

// ChapterNarrator renders chapter text to an audio file.
type ChapterNarrator interface {
	Narrate(ctx context.Context, text, dest string) (narration.Result, error)
}

// AudioConcatenator merges chapter audio.
type AudioConcatenator interface {
	Concatenate(ctx context.Context, req concat.Request) (concat.Result, error)
}

// ProgressStore persists progress records.
type ProgressStore interface {
	Load(bookID string) (progress.Record, error)
	Save(bookID string, record progress.Record) error
	Lock(bookID string) (func() error, error)
}

// Journal records run history.
type Journal interface {
	StartRun(ctx context.Context, run journal.Run) error
	FinishRun(ctx context.Context, runID string, completed int, concatPath string, runErr error) error
	RecordAttempt(ctx context.Context, runID, bookID string, chapter int, step journal.Step, duration time.Duration, stepErr error) error
	MarkAbandoned(ctx context.Context, bookID string) (int64, error)
}

// Dependencies wires a Runner. Generator, Narrator, Progress and Layout are
// required; the rest are optional.
type Dependencies struct {
	Generator    ChapterGenerator
	Narrator     ChapterNarrator
	Concatenator AudioConcatenator
	Progress     ProgressStore
	Layout       artifacts.Layout
	Journal      Journal
	Metrics      *metrics.Recorder
	Logger       *slog.Logger

	// MetricsTextfile is written after every run when set.
	MetricsTextfile string
	// OnChapter is called after each chapter is fully persisted.
	OnChapter func(Chapter)
}

// Chapter is one fully persisted chapter.
type Chapter struct {
	BookID     string
	Index      int
	Text       string
	Checkpoint string
	TextPath   string
	AudioPath  string
}

// Request describes one run.
type Request struct {
	Spec         bookspec.Spec
	NumChapters  int
	ConcatOutput string
}

// Result summarizes a run. It is populated even when Run returns an error.
type Result struct {
	BookID       string
	RunID        string
	StartChapter int
	Completed    int
	Generated    []Chapter
	ConcatPath   string
}

// Runner executes runs.
type Runner struct {
	deps   Dependencies
	logger *slog.Logger
	newID  func() string
}

// New validates dependencies and constructs a Runner.
func New(deps Dependencies) (*Runner, error) {
	var missing []string
	if deps.Generator == nil {
		missing = append(missing, "generator")
	}
	if deps.Narrator == nil {
		missing = append(missing, "narrator")
	}
	if deps.Progress == nil {
		missing = append(missing, "progress store")
	}
	if deps.Layout.Dir() == "" {
		missing = append(missing, "chapters directory")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("runner requires %s", strings.Join(missing, ", "))
	}
	return &Runner{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "runner"),
		newID:  uuid.NewString,
	}, nil
}

// Run generates req.NumChapters more chapters for the book and optionally
// concatenates all completed chapters.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	bookID := req.Spec.ID
	result := Result{BookID: bookID}
	if req.NumChapters < 1 {
		return result, services.Wrap(services.ErrConfiguration, "run", "validate",
			fmt.Sprintf("Number of chapters must be at least 1, got %d", req.NumChapters), nil)
	}
	if err := bookspec.ValidateID(bookID); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "run", "validate", "Invalid book ID", err)
	}

	runID := r.newID()
	result.RunID = runID
	ctx = services.WithRunID(services.WithBookID(ctx, bookID), runID)
	logger := logging.WithContext(ctx, r.logger)

	unlock, err := r.deps.Progress.Lock(bookID)
	if err != nil {
		return result, err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Debug("release book lock failed", logging.Error(err))
		}
	}()

	record, err := r.loadProgress(ctx, bookID, true)
	if err != nil {
		return result, err
	}
	result.StartChapter = record.CompletedChapters + 1
	result.Completed = record.CompletedChapters

	r.startJournal(ctx, journal.Run{
		ID:           runID,
		BookID:       bookID,
		SpecPath:     req.Spec.Path,
		Requested:    req.NumChapters,
		StartChapter: result.StartChapter,
	}, true)

	logger.Info("run started",
		logging.String("title", req.Spec.Title),
		logging.Int("start_chapter", result.StartChapter),
		logging.Int("requested", req.NumChapters),
	)

	var loopErr error
	for i := 0; i < req.NumChapters; i++ {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}
		chapter, err := r.runChapter(ctx, req.Spec, &record)
		if err != nil {
			loopErr = err
			break
		}
		result.Completed = record.CompletedChapters
		result.Generated = append(result.Generated, chapter)
		if r.deps.OnChapter != nil {
			r.deps.OnChapter(chapter)
		}
	}

	var concatErr error
	if req.ConcatOutput != "" && result.Completed > 0 && ctx.Err() == nil {
		result.ConcatPath, concatErr = r.concatenate(ctx, bookID, result.Completed, req.ConcatOutput)
	}

	runErr := loopErr
	switch {
	case loopErr != nil && concatErr != nil:
		runErr = errors.Join(loopErr, concatErr)
	case concatErr != nil:
		runErr = concatErr
	}

	r.finish(ctx, bookID, runID, result, runErr)
	if runErr != nil {
		logging.ErrorWithContext(logger, "run failed", "run_failed",
			logging.Error(runErr),
			logging.Int("generated", len(result.Generated)),
			logging.Int("completed", result.Completed),
			logging.String(logging.FieldErrorHint, "rerun the same command to resume from the next chapter"),
		)
		return result, runErr
	}
	logger.Info("run finished",
		logging.Int("generated", len(result.Generated)),
		logging.Int("completed", result.Completed),
	)
	return result, nil
}

// Concatenate merges chapters 1..completed of bookID without generating.
func (r *Runner) Concatenate(ctx context.Context, bookID, output string) (Result, error) {
	result := Result{BookID: bookID}
	if err := bookspec.ValidateID(bookID); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "concat", "validate", "Invalid book ID", err)
	}
	runID := r.newID()
	result.RunID = runID
	ctx = services.WithRunID(services.WithBookID(ctx, bookID), runID)

	record, err := r.loadProgress(ctx, bookID, false)
	if err != nil {
		return result, err
	}
	result.Completed = record.CompletedChapters
	result.StartChapter = record.CompletedChapters + 1
	if record.CompletedChapters == 0 {
		return result, services.Wrap(services.ErrConcatenation, "concat", "validate",
			fmt.Sprintf("Book %q has no completed chapters", bookID), nil)
	}

	// No book lock is held here, so a live generation run must not be swept.
	r.startJournal(ctx, journal.Run{ID: runID, BookID: bookID, StartChapter: result.StartChapter}, false)
	result.ConcatPath, err = r.concatenate(ctx, bookID, record.CompletedChapters, output)
	r.finish(ctx, bookID, runID, result, err)
	return result, err
}

func (r *Runner) runChapter(ctx context.Context, spec bookspec.Spec, record *progress.Record) (Chapter, error) {
	bookID := spec.ID
	index := record.CompletedChapters + 1
	ctx = services.WithChapter(ctx, index)
	logger := logging.WithContext(ctx, r.logger)
	chapter := Chapter{BookID: bookID, Index: index}

	stepCtx := services.WithStage(ctx, string(journal.StepGenerate))
	started := time.Now()
	generated, err := r.deps.Generator.Generate(stepCtx, generator.Request{
		Spec:       spec.Content,
		Checkpoint: record.ContinuitySummary,
		Index:      index,
	})
	if err == nil {
		chapter.Text = generated.Text
		chapter.Checkpoint = generated.Checkpoint
		chapter.TextPath, err = r.deps.Layout.WriteText(bookID, index, generated.Text)
		if err != nil {
			err = services.Wrap(services.ErrGeneration, "generate", fmt.Sprintf("chapter %d", index), "Save chapter text", err)
		}
	}
	r.recordStep(stepCtx, journal.StepGenerate, time.Since(started), err)
	if err != nil {
		return chapter, err
	}
	logger.Info("chapter text written",
		logging.String("path", chapter.TextPath),
		logging.Int("chars", len(chapter.Text)),
	)
	logger.Debug("chapter text", logging.String("text", chapter.Text))

	stepCtx = services.WithStage(ctx, string(journal.StepNarrate))
	started = time.Now()
	chapter.AudioPath = r.deps.Layout.AudioPath(bookID, index)
	narrated, err := r.deps.Narrator.Narrate(stepCtx, chapter.Text, chapter.AudioPath)
	r.recordStep(stepCtx, journal.StepNarrate, time.Since(started), err)
	if err != nil {
		return chapter, err
	}
	r.deps.Metrics.ObserveChapter(len(chapter.Text), narrated.Bytes)

	stepCtx = services.WithStage(ctx, string(journal.StepPersist))
	started = time.Now()
	next := progress.Record{CompletedChapters: index, ContinuitySummary: chapter.Checkpoint}
	err = r.deps.Progress.Save(bookID, next)
	r.recordStep(stepCtx, journal.StepPersist, time.Since(started), err)
	if err != nil {
		return chapter, fmt.Errorf("chapter %d: persist: %w", index, err)
	}
	*record = next

	logger.Info("chapter complete",
		logging.String("audio", chapter.AudioPath),
		logging.Int("segments", narrated.Segments),
		logging.String("checkpoint", chapter.Checkpoint),
	)
	return chapter, nil
}

func (r *Runner) loadProgress(ctx context.Context, bookID string, migrate bool) (progress.Record, error) {
	record, err := r.deps.Progress.Load(bookID)
	if err != nil {
		return record, err
	}
	if !record.Legacy {
		return record, nil
	}
	scan, err := r.deps.Layout.ScanLegacy(bookID)
	if err != nil {
		return record, services.Wrap(services.ErrProgressStore, "progress", "migrate", "Scan existing chapters", err)
	}
	if scan.Completed == 0 && scan.HasText {
		return record, services.Wrap(services.ErrProgressStore, "progress", "migrate",
			fmt.Sprintf("Legacy progress for %q matches no complete chapter but chapter text exists; move the chapter files aside or delete the progress file to start over", bookID), nil)
	}
	contiguous := scan.Completed
	record.CompletedChapters = contiguous
	if scan.LegacyAudio > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "legacy chapters use mp3 audio", "legacy_audio_format",
			logging.Int("chapters", scan.LegacyAudio),
			logging.String("format", strings.TrimPrefix(artifacts.LegacyAudioExt, ".")),
			logging.String(logging.FieldErrorHint, `set tts.format = "mp3" to concatenate this book`),
			logging.String(logging.FieldImpact, "concatenation fails until every chapter has audio in the configured format"),
		)
	}
	if !migrate {
		return record, nil
	}
	if err := r.deps.Progress.Save(bookID, record); err != nil {
		return record, err
	}
	record.Legacy = false
	logging.WithContext(ctx, r.logger).Info("legacy progress record migrated", logging.Int("completed", contiguous))
	return record, nil
}

func (r *Runner) concatenate(ctx context.Context, bookID string, completed int, output string) (string, error) {
	if r.deps.Concatenator == nil {
		return "", services.Wrap(services.ErrConcatenation, "concat", "setup", "Concatenator unavailable", nil)
	}
	ctx = services.WithStage(ctx, string(journal.StepConcat))
	started := time.Now()
	merged, err := r.deps.Concatenator.Concatenate(ctx, concat.Request{
		Inputs: r.deps.Layout.AudioPaths(bookID, completed),
		Output: output,
	})
	r.recordStep(services.WithChapter(ctx, completed), journal.StepConcat, time.Since(started), err)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, r.logger).Info("chapters concatenated",
		logging.String("output", merged.Output),
		logging.Int("chapters", completed),
	)
	return merged.Output, nil
}

// startJournal records the run. sweep closes unfinished runs for the book and
// is only safe while the book lock is held.
func (r *Runner) startJournal(ctx context.Context, run journal.Run, sweep bool) {
	if r.deps.Journal == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	if sweep {
		if abandoned, err := r.deps.Journal.MarkAbandoned(ctx, run.BookID); err != nil {
			r.journalWarning(logger, err)
		} else if abandoned > 0 {
			logger.Info("closed unfinished journal runs", logging.Int64("runs", abandoned))
		}
	}
	if err := r.deps.Journal.StartRun(ctx, run); err != nil {
		r.journalWarning(logger, err)
	}
}

func (r *Runner) recordStep(ctx context.Context, step journal.Step, duration time.Duration, err error) {
	r.deps.Metrics.ObserveStep(string(step), duration, err)
	if r.deps.Journal == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	bookID, _ := services.BookIDFromContext(ctx)
	chapter, _ := services.ChapterFromContext(ctx)
	if jerr := r.deps.Journal.RecordAttempt(ctx, runID, bookID, chapter, step, duration, err); jerr != nil {
		r.journalWarning(logging.WithContext(ctx, r.logger), jerr)
	}
}

func (r *Runner) finish(ctx context.Context, bookID, runID string, result Result, runErr error) {
	logger := logging.WithContext(ctx, r.logger)
	// Cancelled runs are still closed out in the journal.
	closeCtx := context.WithoutCancel(ctx)
	if r.deps.Journal != nil {
		if err := r.deps.Journal.FinishRun(closeCtx, runID, result.Completed, result.ConcatPath, runErr); err != nil {
			r.journalWarning(logger, err)
		}
	}
	r.deps.Metrics.ObserveRun(bookID, result.Completed, runErr)
	if err := r.deps.Metrics.WriteTextfile(r.deps.MetricsTextfile); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
			logging.String(logging.FieldImpact, "run metrics unavailable to node_exporter"),
		)
	}
}

func (r *Runner) journalWarning(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "delete the journal database if the problem persists"),
		logging.String(logging.FieldImpact, "run history incomplete; progress unaffected"),
	)
}
