package progress

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookforge/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "progress"))
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store
}

func TestLoadMissingReturnsZeroRecord(t *testing.T) {
	store := newTestStore(t)
	record, err := store.Load("fresh_book")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if record.CompletedChapters != 0 || record.ContinuitySummary != "" || record.Legacy {
		t.Fatalf("expected zero record, got %+v", record)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	want := Record{CompletedChapters: 3, ContinuitySummary: "I just wrote Chapter 3. Mara found the key."}
	if err := store.Save("quantum_detective", want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := store.Load("quantum_detective")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.CompletedChapters != want.CompletedChapters || got.ContinuitySummary != want.ContinuitySummary {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
	if !got.UpdatedAt.Equal(store.now()) {
		t.Fatalf("expected UpdatedAt %s, got %s", store.now(), got.UpdatedAt)
	}

	data, err := os.ReadFile(store.Path("quantum_detective"))
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	for _, key := range []string{`"completedChapters": 3`, `"continuitySummary"`, `"updatedAt"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in %s", key, data)
		}
	}
}

func TestLoadLegacyBareString(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.Path("old_book"), []byte(`"I just wrote Chapter 2."`), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}
	record, err := store.Load("old_book")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !record.Legacy || record.ContinuitySummary != "I just wrote Chapter 2." || record.CompletedChapters != 0 {
		t.Fatalf("unexpected legacy record %+v", record)
	}

	record.CompletedChapters = 2
	if err := store.Save("old_book", record); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	migrated, err := store.Load("old_book")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if migrated.Legacy || migrated.CompletedChapters != 2 {
		t.Fatalf("expected migrated record, got %+v", migrated)
	}
}

func TestLoadCorruptRecord(t *testing.T) {
	store := newTestStore(t)
	cases := map[string]string{
		"garbage":  "{not json",
		"empty":    "",
		"negative": `{"completedChapters": -1}`,
	}
	for name, content := range cases {
		if err := os.WriteFile(store.Path(name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := store.Load(name); !errors.Is(err, services.ErrProgressStore) {
			t.Fatalf("%s: expected ErrProgressStore, got %v", name, err)
		}
	}
}

func TestSaveRejectsNegativeCount(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("book", Record{CompletedChapters: -2}); !errors.Is(err, services.ErrProgressStore) {
		t.Fatalf("expected ErrProgressStore, got %v", err)
	}
}

func TestLockIsExclusivePerBook(t *testing.T) {
	store := newTestStore(t)
	unlock, err := store.Lock("quantum_detective")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	other, err := NewStore(store.Dir())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	if _, err := other.Lock("quantum_detective"); !errors.Is(err, services.ErrBookLocked) {
		t.Fatalf("expected ErrBookLocked, got %v", err)
	}
	unlockOther, err := other.Lock("another_book")
	if err != nil {
		t.Fatalf("lock on a different book failed: %v", err)
	}
	_ = unlockOther()

	if err := unlock(); err != nil {
		t.Fatalf("unlock returned error: %v", err)
	}
	relock, err := other.Lock("quantum_detective")
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = relock()
}

func TestListSortsAndReportsCorruptEntries(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("zeta", Record{CompletedChapters: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save("alpha", Record{CompletedChapters: 4}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path("broken"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	unlock, err := store.Lock("alpha")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}
	if entries[0].BookID != "alpha" || entries[0].Record.CompletedChapters != 4 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].BookID != "broken" || entries[1].Err == nil {
		t.Fatalf("expected corrupt entry error, got %+v", entries[1])
	}
	if entries[2].BookID != "zeta" {
		t.Fatalf("unexpected last entry %+v", entries[2])
	}
}
