package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"bookforge/internal/fileutil"
	"bookforge/internal/services"
)

const (
	recordExt = ".json"
	lockExt   = ".lock"
)

// Record is the durable progress of one book.
type Record struct {
	CompletedChapters int       `json:"completedChapters"`
	ContinuitySummary string    `json:"continuitySummary"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// Legacy marks a record read from the bare-string format, whose chapter
	// count must be reconstructed from the chapter files on disk.
	Legacy bool `json:"-"`
}

// Entry pairs a book ID with its record for listings. Err is set when the
// record could not be read.
type Entry struct {
	BookID string
	Record Record
	Err    error
}

// Store reads and writes progress records under a single directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "progress", "open", "Progress directory is not configured", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrProgressStore, "progress", "open", fmt.Sprintf("Create progress directory %s", dir), err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the progress directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the record path for bookID.
func (s *Store) Path(bookID string) string {
	return filepath.Join(s.dir, bookID+recordExt)
}

// Load returns the record for bookID. A missing file yields the zero record.
func (s *Store) Load(bookID string) (Record, error) {
	path := s.Path(bookID)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, nil
		}
		return Record{}, services.Wrap(services.ErrProgressStore, "progress", "load", fmt.Sprintf("Read %s", path), err)
	}
	record, err := decode(data)
	if err != nil {
		return Record{}, services.Wrap(services.ErrProgressStore, "progress", "load", fmt.Sprintf("Progress file %s is corrupt", path), err)
	}
	return record, nil
}

// Save atomically replaces the record for bookID and stamps UpdatedAt.
func (s *Store) Save(bookID string, record Record) error {
	if record.CompletedChapters < 0 {
		return services.Wrap(services.ErrProgressStore, "progress", "save", fmt.Sprintf("Negative chapter count %d", record.CompletedChapters), nil)
	}
	record.UpdatedAt = s.now().UTC()
	record.Legacy = false
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrProgressStore, "progress", "save", "Encode record", err)
	}
	data = append(data, '\n')
	path := s.Path(bookID)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrProgressStore, "progress", "save", fmt.Sprintf("Write %s", path), err)
	}
	return nil
}

// Lock takes the exclusive per-book run lock without blocking. The returned
// function releases it.
func (s *Store) Lock(bookID string) (func() error, error) {
	lockPath := filepath.Join(s.dir, bookID+lockExt)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrProgressStore, "progress", "lock", fmt.Sprintf("Acquire %s", lockPath), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBookLocked, "progress", "lock", fmt.Sprintf("Another bookforge run is already generating %q (lock %s)", bookID, lockPath), nil)
	}
	return lock.Unlock, nil
}

// List returns every record in the directory sorted by book ID.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrProgressStore, "progress", "list", fmt.Sprintf("Read %s", s.dir), err)
	}
	var entries []Entry
	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		bookID := strings.TrimSuffix(name, recordExt)
		record, err := s.Load(bookID)
		entries = append(entries, Entry{BookID: bookID, Record: record, Err: err})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BookID < entries[j].BookID })
	return entries, nil
}

func decode(data []byte) (Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Record{}, errors.New("empty file")
	}
	if trimmed[0] == '"' {
		var checkpoint string
		if err := json.Unmarshal(trimmed, &checkpoint); err != nil {
			return Record{}, err
		}
		return Record{ContinuitySummary: checkpoint, Legacy: true}, nil
	}
	var record Record
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return Record{}, err
	}
	if record.CompletedChapters < 0 {
		return Record{}, fmt.Errorf("negative chapter count %d", record.CompletedChapters)
	}
	return record, nil
}
