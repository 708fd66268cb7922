package generator

import (
	"fmt"
	"strings"
)

// StartCheckpoint stands in for the continuity summary before chapter 1.
const StartCheckpoint = "This is the start of the story. We need to write chapter 1."

const systemPrompt = `You are an expert storyteller AI that creates detailed, engaging book chapters. You will be tasked to write successive chapters of a book.
For each prompt, you will be given a book specification and a progress checkpoint from the last chapter you wrote.

You should always do the following:
1. Write the next chapter of the book based on the specification and the last progress checkpoint. Strive for continuity and coherence with the previous chapters.
2. Begin the chapter section with the tag [chapter]. Do not use a closing tag; the start of any new tag (e.g. [progress]) marks its end.
3. After the chapter, prefix the progress checkpoint with [progress]. The progress checkpoint should include:
    - A line stating: "I just wrote Chapter X", where "X" is the chapter number.
    - An estimated number of chapters remaining.
    - How we got to this point in the story from the previous chapter.
    - A summary of the chapter, including any significant events and character developments. Name characters directly.
    - An indication of where we are in the greater story, character arcs, and unresolved plot points.
    - A suggestion for where to go in the next chapter and beyond.`

// SystemPrompt returns the fixed instructions sent with every chapter request.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt builds the per-chapter request from the spec and the last checkpoint.
func UserPrompt(spec, checkpoint string, index int) string {
	checkpoint = strings.TrimSpace(checkpoint)
	if checkpoint == "" {
		checkpoint = StartCheckpoint
	}
	var b strings.Builder
	b.WriteString("BOOK SPECIFICATION:\n")
	b.WriteString(spec)
	b.WriteString("\n\nLAST PROGRESS CHECKPOINT:\n")
	b.WriteString(checkpoint)
	fmt.Fprintf(&b, "\n\nWrite Chapter %d now.\n", index)
	return b.String()
}
