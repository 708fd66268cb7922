package bookspec

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bookforge/internal/services"
)

func TestLoadDerivesIDAndTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quantum_detective.spec.md")
	if err := os.WriteFile(path, []byte("\nA noir mystery in a quantum city.\n"), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	spec, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if spec.ID != "quantum_detective" {
		t.Fatalf("expected id quantum_detective, got %q", spec.ID)
	}
	if spec.Title != "Quantum Detective" {
		t.Fatalf("expected title Quantum Detective, got %q", spec.Title)
	}
	if spec.Content != "\nA noir mystery in a quantum city.\n" {
		t.Fatalf("unexpected content %q", spec.Content)
	}
	if !filepath.IsAbs(spec.Path) {
		t.Fatalf("expected absolute path, got %q", spec.Path)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load returned error: %v", err)
	}
	if again.ID != spec.ID {
		t.Fatalf("same file produced different ids: %q vs %q", spec.ID, again.ID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "ghost.md"))
	if !errors.Is(err, services.ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.md")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestDeriveID(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "quantum_detective.spec.md", want: "quantum_detective"},
		{path: "/books/my-novel.txt", want: "my-novel"},
		{path: "Book2", want: "Book2"},
		{path: ".hidden.md", wantErr: true},
		{path: "two words.md", wantErr: true},
		{path: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := DeriveID(tt.path)
		if tt.wantErr {
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("DeriveID(%q): expected configuration error, got %v", tt.path, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("DeriveID(%q) returned error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Fatalf("DeriveID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResolveID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saga.spec.md")
	if err := os.WriteFile(path, []byte("spec"), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	if got, err := ResolveID(path); err != nil || got != "saga" {
		t.Fatalf("ResolveID(path) = %q, %v", got, err)
	}
	if got, err := ResolveID("quantum_detective"); err != nil || got != "quantum_detective" {
		t.Fatalf("ResolveID(id) = %q, %v", got, err)
	}
	if _, err := ResolveID("bad id"); err == nil {
		t.Fatal("expected error for invalid id")
	}
}
