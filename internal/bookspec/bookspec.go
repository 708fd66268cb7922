package bookspec

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bookforge/internal/services"
)

// Spec is the immutable book specification for one run.
type Spec struct {
	Path  string
	ID    string
	Title string
	// Content is the file text exactly as read.
	Content string
}

// Load reads the spec file at path and derives its book ID.
func Load(path string) (Spec, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Spec{}, services.Wrap(services.ErrConfiguration, "spec", "load", "Spec file path is required", nil)
	}
	id, err := DeriveID(path)
	if err != nil {
		return Spec{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Spec{}, services.Wrap(services.ErrSpecNotFound, "spec", "load", fmt.Sprintf("Spec file %s does not exist", path), err)
		}
		return Spec{}, services.Wrap(services.ErrConfiguration, "spec", "load", fmt.Sprintf("Read spec file %s", path), err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return Spec{}, services.Wrap(services.ErrConfiguration, "spec", "load", fmt.Sprintf("Spec file %s is empty", path), nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Spec{
		Path:    abs,
		ID:      id,
		Title:   DisplayTitle(id),
		Content: content,
	}, nil
}

// DeriveID returns the base file name of path up to its first dot.
func DeriveID(path string) (string, error) {
	base := filepath.Base(strings.TrimSpace(path))
	id, _, _ := strings.Cut(base, ".")
	if err := ValidateID(id); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "spec", "derive id", fmt.Sprintf("Cannot derive a book ID from %q", base), err)
	}
	return id, nil
}

// ValidateID reports whether id only contains letters, digits, '-' and '_'.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("book id is empty")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("book id %q contains unsupported character %q", id, r)
		}
	}
	return nil
}

// ResolveID accepts either a spec file path or a bare book ID. Existing files
// win so a spec named like an ID is still read from disk.
func ResolveID(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", services.Wrap(services.ErrConfiguration, "spec", "resolve id", "Book ID or spec file is required", nil)
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return DeriveID(arg)
	}
	if strings.ContainsAny(arg, `/\.`) {
		return DeriveID(arg)
	}
	if err := ValidateID(arg); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "spec", "resolve id", "Invalid book ID", err)
	}
	return arg, nil
}

// DisplayTitle turns a book ID into a human-readable title.
func DisplayTitle(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' })
	if len(words) == 0 {
		return id
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}
