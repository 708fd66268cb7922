// Package services defines shared utilities consumed by the generation
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp book IDs, chapter indexes, step names, and run
//     identifiers for logging and journaling.
//   - Structured error markers plus the Wrap helper so every failure surfaced to
//     the CLI can be classified (configuration, generation, narration, ...) and
//     traced back to the chapter and step that produced it.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error handling, observability) stays uniform.
package services
