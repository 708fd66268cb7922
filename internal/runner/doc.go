// Package runner drives the resumable chapter loop for one book.
//
// A run takes the book's lock, loads its progress record and then, for each
// requested chapter, generates text, writes it to disk, narrates it and only
// then advances the record. The record is the checkpoint between chapters: a
// failure or interruption anywhere inside a chapter leaves it pointing at the
// last fully finished chapter, and the next run regenerates the failed one
// from scratch, overwriting any orphaned files.
//
// After the loop, successful or not, the requested concatenation covers every
// completed chapter. Journal and metrics failures are logged and never fail a
// run.
package runner
