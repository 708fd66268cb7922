// Package artifacts names and locates the files a book produces.
//
// Chapter files live flat in the chapters directory as
// <book-id>_chapter_<n>.md and <book-id>_chapter_<n>.<format>. Names are a pure
// function of book ID, index and audio format, so a resumed run overwrites any
// orphan left by an interrupted chapter.
package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"bookforge/internal/fileutil"
)

const textExt = ".md"

// LegacyAudioExt is the audio extension used before the format was configurable.
const LegacyAudioExt = ".mp3"

// Layout resolves chapter paths for one chapters directory and audio format.
type Layout struct {
	dir      string
	audioExt string
}

// NewLayout returns a layout. audioExt may be given with or without the dot.
func NewLayout(dir, audioExt string) Layout {
	audioExt = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(audioExt)), ".")
	if audioExt == "" {
		audioExt = "mp3"
	}
	return Layout{dir: dir, audioExt: "." + audioExt}
}

// Dir returns the chapters directory.
func (l Layout) Dir() string {
	return l.dir
}

// TextPath returns the chapter text path.
func (l Layout) TextPath(bookID string, index int) string {
	return filepath.Join(l.dir, chapterStem(bookID, index)+textExt)
}

// AudioPath returns the chapter audio path.
func (l Layout) AudioPath(bookID string, index int) string {
	return filepath.Join(l.dir, chapterStem(bookID, index)+l.audioExt)
}

// AudioPaths lists audio paths for chapters 1..through in order.
func (l Layout) AudioPaths(bookID string, through int) []string {
	paths := make([]string, 0, max(through, 0))
	for i := 1; i <= through; i++ {
		paths = append(paths, l.AudioPath(bookID, i))
	}
	return paths
}

// WriteText persists chapter text atomically and returns its path.
func (l Layout) WriteText(bookID string, index int, text string) (string, error) {
	path := l.TextPath(bookID, index)
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write chapter %d text: %w", index, err)
	}
	return path, nil
}

// ChapterFiles reports which artifacts exist for one chapter index.
type ChapterFiles struct {
	Index     int
	TextPath  string
	AudioPath string
	HasText   bool
	HasAudio  bool
	// HasLegacyAudio is set when .mp3 audio exists and the layout format differs.
	HasLegacyAudio bool
}

// Complete reports whether both text and audio exist.
func (c ChapterFiles) Complete() bool {
	return c.HasText && c.HasAudio
}

// Scan lists every chapter index with at least one artifact, sorted by index.
func (l Layout) Scan(bookID string) ([]ChapterFiles, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chapters directory: %w", err)
	}
	prefix := bookID + "_chapter_"
	byIndex := map[int]*ChapterFiles{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		number, ext, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		index, err := strconv.Atoi(number)
		if err != nil || index < 1 || strconv.Itoa(index) != number {
			continue
		}
		files, exists := byIndex[index]
		if !exists {
			files = &ChapterFiles{
				Index:     index,
				TextPath:  l.TextPath(bookID, index),
				AudioPath: l.AudioPath(bookID, index),
			}
			byIndex[index] = files
		}
		switch "." + ext {
		case textExt:
			files.HasText = true
		case l.audioExt:
			files.HasAudio = true
		case LegacyAudioExt:
			files.HasLegacyAudio = true
		}
	}
	result := make([]ChapterFiles, 0, len(byIndex))
	for _, files := range byIndex {
		result = append(result, *files)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// Contiguous counts complete chapters starting at 1 with no gaps.
func (l Layout) Contiguous(bookID string) (int, error) {
	files, err := l.Scan(bookID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, chapter := range files {
		if chapter.Index != count+1 || !chapter.Complete() {
			break
		}
		count++
	}
	return count, nil
}

// LegacyScan summarizes chapters left by a run that only recorded a checkpoint.
type LegacyScan struct {
	// Completed counts chapters from 1 with text and audio in either format.
	Completed int
	// LegacyAudio counts completed chapters whose only audio is .mp3.
	LegacyAudio int
	// HasText reports whether any chapter text exists for the book.
	HasText bool
}

// ScanLegacy counts contiguous chapters, accepting .mp3 audio as well as the
// layout format.
func (l Layout) ScanLegacy(bookID string) (LegacyScan, error) {
	files, err := l.Scan(bookID)
	if err != nil {
		return LegacyScan{}, err
	}
	var scan LegacyScan
	counting := true
	for _, chapter := range files {
		if chapter.HasText {
			scan.HasText = true
		}
		if !counting {
			continue
		}
		if chapter.Index != scan.Completed+1 || !chapter.HasText || (!chapter.HasAudio && !chapter.HasLegacyAudio) {
			counting = false
			continue
		}
		scan.Completed++
		if !chapter.HasAudio {
			scan.LegacyAudio++
		}
	}
	return scan, nil
}

// MissingAudio returns the audio paths among chapters 1..through that do not exist.
func (l Layout) MissingAudio(bookID string, through int) []string {
	var missing []string
	for _, path := range l.AudioPaths(bookID, through) {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}

func chapterStem(bookID string, index int) string {
	return bookID + "_chapter_" + strconv.Itoa(index)
}
