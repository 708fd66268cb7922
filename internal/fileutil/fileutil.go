// Package fileutil provides crash-safe file replacement helpers.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file next to path, fsyncs it and
// renames it over path. Readers see either the old content or the new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	pending, err := CreatePending(path, perm)
	if err != nil {
		return err
	}
	if _, err := pending.Write(data); err != nil {
		pending.Abort()
		return fmt.Errorf("write temp file: %w", err)
	}
	return pending.Commit()
}

// Pending is a temp file that replaces its target only on Commit.
type Pending struct {
	*os.File
	target string
	done   bool
}

// CreatePending opens a temp file in the target's directory, creating the
// directory if needed.
func CreatePending(target string, perm os.FileMode) (*Pending, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	return &Pending{File: tmp, target: target}, nil
}

// Target returns the final path.
func (p *Pending) Target() string {
	return p.target
}

// Commit flushes the temp file to disk and renames it over the target.
func (p *Pending) Commit() error {
	if p.done {
		return fmt.Errorf("pending file %s already finalized", p.target)
	}
	p.done = true
	tmpName := p.Name()
	if err := p.Sync(); err != nil {
		p.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := p.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Abort discards the temp file. It is safe to call after Commit.
func (p *Pending) Abort() {
	if p.done {
		return
	}
	p.done = true
	p.Close()
	os.Remove(p.Name())
}
