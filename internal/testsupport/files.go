package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteAudio creates a stand-in chapter audio file of the requested size:
// an ID3 marker followed by filler bytes. A size smaller than the marker
// writes the marker alone.
func WriteAudio(t testing.TB, path string, size int) {
	t.Helper()

	data := []byte("ID3")
	if size > len(data) {
		data = append(data, bytes.Repeat([]byte{0x42}, size-len(data))...)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
