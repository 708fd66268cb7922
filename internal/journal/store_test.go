package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bookforge/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	if err := store.StartRun(ctx, Run{ID: "run-1", BookID: "quantum_detective", SpecPath: "/books/q.md", Requested: 3, StartChapter: 1}); err != nil {
		t.Fatalf("StartRun returned error: %v", err)
	}
	clock = clock.Add(2 * time.Second)
	if err := store.RecordAttempt(ctx, "run-1", "quantum_detective", 1, StepGenerate, 1500*time.Millisecond, nil); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	narrationErr := services.Wrap(services.ErrNarration, "narrate", "chapter 1", "Segment 1 of 1 failed", errors.New("503"))
	if err := store.RecordAttempt(ctx, "run-1", "quantum_detective", 1, StepNarrate, 200*time.Millisecond, narrationErr); err != nil {
		t.Fatalf("RecordAttempt returned error: %v", err)
	}
	clock = clock.Add(time.Minute)
	if err := store.FinishRun(ctx, "run-1", 0, "", narrationErr); err != nil {
		t.Fatalf("FinishRun returned error: %v", err)
	}

	runs, err := store.RecentRuns(ctx, "quantum_detective", 5)
	if err != nil {
		t.Fatalf("RecentRuns returned error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != RunFailed || run.ErrorKind != "narration" || run.Requested != 3 || run.SpecPath != "/books/q.md" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Duration() != 62*time.Second {
		t.Fatalf("expected 62s duration, got %s", run.Duration())
	}

	attempts, err := store.Attempts(ctx, "run-1")
	if err != nil {
		t.Fatalf("Attempts returned error: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Step != StepGenerate || attempts[0].Status != AttemptSucceeded || attempts[0].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected first attempt %+v", attempts[0])
	}
	if attempts[1].Status != AttemptFailed || attempts[1].ErrorKind != "narration" || attempts[1].ErrorMessage == "" {
		t.Fatalf("unexpected second attempt %+v", attempts[1])
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.StartRun(ctx, Run{ID: id, BookID: "book", Requested: 1, StartChapter: i + 1, StartedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("StartRun returned error: %v", err)
		}
	}
	if err := store.StartRun(ctx, Run{ID: "other", BookID: "other_book", Requested: 1, StartChapter: 1, StartedAt: base}); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(ctx, "book", 2)
	if err != nil {
		t.Fatalf("RecentRuns returned error: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	all, err := store.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs across books, got %d", len(all))
	}
}

func TestMarkAbandoned(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if err := store.StartRun(ctx, Run{ID: "stale", BookID: "book", Requested: 1, StartChapter: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.StartRun(ctx, Run{ID: "done", BookID: "book", Requested: 1, StartChapter: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, "done", 1, "", nil); err != nil {
		t.Fatal(err)
	}

	affected, err := store.MarkAbandoned(ctx, "book")
	if err != nil {
		t.Fatalf("MarkAbandoned returned error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 abandoned run, got %d", affected)
	}
	runs, err := store.RecentRuns(ctx, "book", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, run := range runs {
		if run.Status == RunRunning {
			t.Fatalf("run %s still running", run.ID)
		}
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("update version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestStartRunValidates(t *testing.T) {
	store := openTestStore(t)
	if err := store.StartRun(context.Background(), Run{BookID: "book"}); err == nil {
		t.Fatal("expected error without run id")
	}
	if got := parseTime(sql.NullString{String: "garbage", Valid: true}); !got.IsZero() {
		t.Fatalf("expected zero time for garbage, got %s", got)
	}
}
