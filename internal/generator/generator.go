package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bookforge/internal/logging"
	"bookforge/internal/services"
	"bookforge/internal/services/llm"
)

// Completer sends one prompt pair to the language model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (llm.Completion, error)
}

// Request describes the chapter to write.
type Request struct {
	Spec       string
	Checkpoint string
	Index      int
}

// Chapter is a parsed model reply.
type Chapter struct {
	Text       string
	Checkpoint string
	Truncated  bool
}

// Generator produces chapters through a Completer.
type Generator struct {
	client Completer
	logger *slog.Logger
}

// New constructs a generator.
func New(client Completer, logger *slog.Logger) *Generator {
	return &Generator{client: client, logger: logging.NewComponentLogger(logger, "generator")}
}

// Generate writes chapter req.Index. Any failure is tagged ErrGeneration.
func (g *Generator) Generate(ctx context.Context, req Request) (Chapter, error) {
	if req.Index < 1 {
		return Chapter{}, services.Wrap(services.ErrGeneration, "generate", "validate", fmt.Sprintf("Invalid chapter index %d", req.Index), nil)
	}
	operation := fmt.Sprintf("chapter %d", req.Index)
	if g.client == nil {
		return Chapter{}, services.Wrap(services.ErrGeneration, "generate", operation, "Language model client unavailable", nil)
	}

	logger := logging.WithContext(ctx, g.logger)
	logger.Debug("requesting chapter",
		logging.Int("spec_chars", len(req.Spec)),
		logging.Int("checkpoint_chars", len(req.Checkpoint)),
	)

	completion, err := g.client.Complete(ctx, SystemPrompt(), UserPrompt(req.Spec, req.Checkpoint, req.Index))
	if err != nil {
		return Chapter{}, services.Wrap(services.ErrGeneration, "generate", operation, "Language model request failed", err)
	}

	sections := ParseSections(completion.Content)
	text := sections[chapterTag]
	checkpoint := sections[progressTag]
	if text == "" || checkpoint == "" {
		missing := make([]string, 0, 2)
		if text == "" {
			missing = append(missing, "["+chapterTag+"]")
		}
		if checkpoint == "" {
			missing = append(missing, "["+progressTag+"]")
		}
		logging.WarnWithContext(logger, "model reply missing sections", "generation_incomplete",
			logging.String("missing", strings.Join(missing, ",")),
			logging.String("found", strings.Join(sectionNames(sections), ",")),
			logging.String("finish_reason", completion.FinishReason),
			logging.String(logging.FieldErrorHint, "rerun the same command; progress was not advanced"),
			logging.String(logging.FieldImpact, "chapter discarded"),
		)
		return Chapter{}, services.Wrap(services.ErrGeneration, "generate", operation,
			fmt.Sprintf("Model reply is missing %s", strings.Join(missing, " and ")), nil)
	}

	if completion.Truncated() {
		logging.WarnWithContext(logger, "model reply hit the output token limit", "generation_truncated",
			logging.String(logging.FieldErrorHint, "raise llm.max_output_tokens if chapters end abruptly"),
			logging.String(logging.FieldImpact, "checkpoint may be shortened"),
		)
	}

	return Chapter{Text: text, Checkpoint: checkpoint, Truncated: completion.Truncated()}, nil
}

func sectionNames(sections map[string]string) []string {
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
