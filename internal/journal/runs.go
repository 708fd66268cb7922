package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookforge/internal/services"
)

// StartRun inserts a running run row.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" || strings.TrimSpace(run.BookID) == "" {
		return errors.New("journal: run id and book id are required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	err := s.exec(ctx, `INSERT INTO runs (id, book_id, spec_path, requested, start_chapter, completed, status, started_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		run.ID, run.BookID, nullString(run.SpecPath), run.Requested, run.StartChapter, string(RunRunning), formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("journal: start run: %w", err)
	}
	return nil
}

// FinishRun records the final outcome of a run. A nil runErr marks success.
func (s *Store) FinishRun(ctx context.Context, runID string, completed int, concatPath string, runErr error) error {
	status := RunSucceeded
	var kind, message string
	if runErr != nil {
		status = RunFailed
		kind = services.Kind(runErr)
		message = runErr.Error()
	}
	err := s.exec(ctx, `UPDATE runs SET completed = ?, status = ?, error_kind = ?, error_message = ?, concat_path = ?, finished_at = ?
		WHERE id = ?`,
		completed, string(status), nullString(kind), nullString(message), nullString(concatPath), formatTime(s.now()), runID)
	if err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

// RecordAttempt appends a step outcome. A nil stepErr marks success.
func (s *Store) RecordAttempt(ctx context.Context, runID, bookID string, chapter int, step Step, duration time.Duration, stepErr error) error {
	status := AttemptSucceeded
	var kind, message string
	if stepErr != nil {
		status = AttemptFailed
		kind = services.Kind(stepErr)
		message = stepErr.Error()
	}
	err := s.exec(ctx, `INSERT INTO attempts (run_id, book_id, chapter, step, status, error_kind, error_message, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, bookID, chapter, string(step), string(status), nullString(kind), nullString(message), duration.Milliseconds(), formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("journal: record attempt: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs for bookID, newest first. An empty
// bookID lists every book.
func (s *Store) RecentRuns(ctx context.Context, bookID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT id, book_id, spec_path, requested, start_chapter, completed, status, error_kind, error_message, concat_path, started_at, finished_at
		FROM runs`
	args := []any{}
	if bookID != "" {
		query += " WHERE book_id = ?"
		args = append(args, bookID)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                                           Run
			status                                        string
			specPath, kind, message, concatPath, finished sql.NullString
			started                                       sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.BookID, &specPath, &run.Requested, &run.StartChapter, &run.Completed,
			&status, &kind, &message, &concatPath, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		run.SpecPath = specPath.String
		run.Status = RunStatus(status)
		run.ErrorKind = kind.String
		run.ErrorMessage = message.String
		run.ConcatPath = concatPath.String
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate runs: %w", err)
	}
	return runs, nil
}

// Attempts returns every attempt of a run in recording order.
func (s *Store) Attempts(ctx context.Context, runID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, book_id, chapter, step, status, error_kind, error_message, duration_ms, recorded_at
		FROM attempts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			attempt        Attempt
			step, status   string
			kind, message  sql.NullString
			durationMillis int64
			recorded       sql.NullString
		)
		if err := rows.Scan(&attempt.ID, &attempt.RunID, &attempt.BookID, &attempt.Chapter, &step, &status,
			&kind, &message, &durationMillis, &recorded); err != nil {
			return nil, fmt.Errorf("journal: scan attempt: %w", err)
		}
		attempt.Step = Step(step)
		attempt.Status = AttemptStatus(status)
		attempt.ErrorKind = kind.String
		attempt.ErrorMessage = message.String
		attempt.Duration = time.Duration(durationMillis) * time.Millisecond
		attempt.RecordedAt = parseTime(recorded)
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate attempts: %w", err)
	}
	return attempts, nil
}

// MarkAbandoned fails runs left in the running state by a crashed process.
func (s *Store) MarkAbandoned(ctx context.Context, bookID string) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ?, error_kind = 'unknown', error_message = 'run did not finish', finished_at = ?
			WHERE book_id = ? AND status = ?`,
			string(RunFailed), formatTime(s.now()), bookID, string(RunRunning))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("journal: mark abandoned: %w", err)
	}
	return affected, nil
}
