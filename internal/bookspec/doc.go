// Package bookspec loads the book specification document that drives a run.
//
// The book ID is the spec file name up to its first dot, so
// quantum_detective.spec.md and quantum_detective.txt name the same book. IDs
// are used verbatim in artifact and progress file names and must therefore be
// filesystem-safe tokens.
package bookspec
