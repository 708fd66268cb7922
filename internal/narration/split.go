package narration

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type boundary int

const (
	paragraphBoundary boundary = iota
	sentenceBoundary
	wordBoundary
	runeBoundary
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)

// Split breaks text into segments of at most maxChars runes, preferring the
// coarsest boundary that fits. A non-positive maxChars disables splitting.
func Split(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		return []string{text}
	}
	return splitAt(text, maxChars, paragraphBoundary)
}

func splitAt(text string, maxChars int, level boundary) []string {
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}
	if level == runeBoundary {
		return hardCut(text, maxChars)
	}

	parts, sep := units(text, level)
	sepLen := utf8.RuneCountInString(sep)

	var segments []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			segments = append(segments, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, part := range parts {
		partLen := utf8.RuneCountInString(part)
		if partLen > maxChars {
			flush()
			segments = append(segments, splitAt(part, maxChars, level+1)...)
			continue
		}
		if currentLen > 0 && currentLen+sepLen+partLen > maxChars {
			flush()
		}
		if currentLen > 0 {
			current.WriteString(sep)
			currentLen += sepLen
		}
		current.WriteString(part)
		currentLen += partLen
	}
	flush()
	return segments
}

func units(text string, level boundary) ([]string, string) {
	switch level {
	case paragraphBoundary:
		return nonEmpty(paragraphBreak.Split(text, -1)), "\n\n"
	case sentenceBoundary:
		return sentences(text), " "
	default:
		return strings.Fields(text), " "
	}
}

// sentences cuts after runs of terminal punctuation (plus closing quotes or
// brackets) that are followed by whitespace.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && (isTerminal(runes[end]) || isCloser(runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			i = end - 1
			continue
		}
		out = append(out, string(runes[start:end]))
		start = end
		i = end - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return nonEmpty(out)
}

func hardCut(text string, maxChars int) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := min(maxChars, len(runes))
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}
