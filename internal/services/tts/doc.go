// Package tts narrates text through the OpenAI speech endpoint.
//
// Client wraps github.com/sashabaranov/go-openai and streams each synthesized
// segment straight into the caller's writer, so long chapters never need to be
// held in memory. Retries are left to the caller; a failed segment fails the
// whole narration.
package tts
