// Package generator writes one chapter per model call.
//
// Each call is independent: the model only sees the book specification and
// the continuity checkpoint it produced for the previous chapter. Replies use
// a tagged protocol; [chapter] opens the prose and [progress] opens the new
// checkpoint, with no closing tags. A reply missing either section is a
// generation failure and never advances progress.
package generator
