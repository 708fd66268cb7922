// Package journal records run history in SQLite.
//
// Every invocation that generates or concatenates gets a run row keyed by a
// UUID, and every chapter step (generate, narrate, persist, concat) gets an
// attempt row with its outcome, error class and duration. The journal is
// purely observational: progress files remain the source of truth for
// resumption, and callers treat journal failures as warnings.
//
// The schema is embedded from schema.sql and versioned through the
// schema_version table; a mismatched database must be deleted.
package journal
