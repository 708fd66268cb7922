package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrSpecNotFound  = errors.New("spec not found")
	ErrGeneration    = errors.New("generation failure")
	ErrNarration     = errors.New("narration failure")
	ErrProgressStore = errors.New("progress store failure")
	ErrConcatenation = errors.New("concatenation failure")
	ErrBookLocked    = errors.New("book locked")
)

// Wrap builds an error message that includes step context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrGeneration
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-friendly label for the error class, used by the
// journal and metrics. Unclassified errors report "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrSpecNotFound):
		return "spec_not_found"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrNarration):
		return "narration"
	case errors.Is(err, ErrProgressStore):
		return "progress_store"
	case errors.Is(err, ErrConcatenation):
		return "concatenation"
	case errors.Is(err, ErrBookLocked):
		return "locked"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
