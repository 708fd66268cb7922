// Package progress persists the per-book progress record that makes runs
// resumable.
//
// Each book owns progress/<book-id>.json. The record's completed chapter count
// is the single source of truth for where the next run starts; the continuity
// summary carries the story checkpoint forward between otherwise independent
// model calls. Saves replace the file atomically and a per-book flock keeps two
// runs from advancing the same book at once.
package progress
