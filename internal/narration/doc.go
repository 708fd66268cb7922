// Package narration turns chapter text into a single audio artifact.
//
// The speech endpoint caps input length, so chapter text is split into
// segments at paragraph, then sentence, then word boundaries. Segments are
// synthesized in order and their encoded bytes appended into one temp file
// that only replaces the chapter's audio path once every segment succeeded.
package narration
