package narration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"bookforge/internal/fileutil"
	"bookforge/internal/logging"
	"bookforge/internal/services"
)

// Synthesizer converts one segment of text to encoded audio written into w.
type Synthesizer interface {
	Synthesize(ctx context.Context, input string, w io.Writer) (int64, error)
}

// Result summarizes a finished narration.
type Result struct {
	Path     string
	Segments int
	Bytes    int64
	Duration time.Duration
}

// containerFormats hold one header per file, so appended segments do not play
// back as one stream.
var containerFormats = map[string]bool{"wav": true, "flac": true, "pcm": true}

// Narrator renders chapter text to an audio file.
type Narrator struct {
	synth    Synthesizer
	maxChars int
	logger   *slog.Logger
}

// New constructs a narrator. maxChars bounds each synthesis request.
func New(synth Synthesizer, maxChars int, logger *slog.Logger) *Narrator {
	return &Narrator{
		synth:    synth,
		maxChars: maxChars,
		logger:   logging.NewComponentLogger(logger, "narrator"),
	}
}

// Narrate synthesizes text into dest. On failure no file is left at dest and
// the error is tagged ErrNarration.
func (n *Narrator) Narrate(ctx context.Context, text, dest string) (Result, error) {
	chapter, _ := services.ChapterFromContext(ctx)
	operation := fmt.Sprintf("chapter %d", chapter)
	if n.synth == nil {
		return Result{}, services.Wrap(services.ErrNarration, "narrate", operation, "Speech client unavailable", nil)
	}
	segments := Split(text, n.maxChars)
	if len(segments) == 0 {
		return Result{}, services.Wrap(services.ErrNarration, "narrate", operation, "Chapter text is empty", nil)
	}

	logger := logging.WithContext(ctx, n.logger)
	started := time.Now()
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(dest), "."))
	if len(segments) > 1 && containerFormats[format] {
		logging.WarnWithContext(logger, "chapter audio will hold several containers", "multi_container_audio",
			logging.String("format", format),
			logging.Int("segments", len(segments)),
			logging.String(logging.FieldErrorHint, "use tts.format mp3, aac or opus, or raise tts.max_input_chars"),
			logging.String(logging.FieldImpact, "most players stop after the first segment"),
		)
	}

	pending, err := fileutil.CreatePending(dest, 0o644)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNarration, "narrate", operation, "Create audio file", err)
	}
	defer pending.Abort()

	var total int64
	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return Result{}, services.Wrap(services.ErrNarration, "narrate", operation, "Narration cancelled", err)
		}
		written, err := n.synth.Synthesize(ctx, segment, pending)
		total += written
		if err != nil {
			return Result{}, services.Wrap(services.ErrNarration, "narrate", operation,
				fmt.Sprintf("Segment %d of %d failed", i+1, len(segments)), err)
		}
		logger.Debug("segment synthesized",
			logging.Int("segment", i+1),
			logging.Int("segments", len(segments)),
			logging.Int64("bytes", written),
		)
	}

	if err := pending.Commit(); err != nil {
		return Result{}, services.Wrap(services.ErrNarration, "narrate", operation, "Finalize audio file", err)
	}
	return Result{
		Path:     dest,
		Segments: len(segments),
		Bytes:    total,
		Duration: time.Since(started),
	}, nil
}
