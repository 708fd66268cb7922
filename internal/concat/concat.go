// Package concat merges chapter audio into one file with ffmpeg.
package concat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"bookforge/internal/logging"
	"bookforge/internal/services"
)

const defaultSilenceFilter = "silenceremove=start_periods=1:start_threshold=-50dB:stop_periods=-1:stop_duration=1:stop_threshold=-50dB"

type commandRunner func(ctx context.Context, name string, args ...string) error

// Request lists the inputs in playback order and the destination path.
type Request struct {
	Inputs []string
	Output string
}

// Result reports a finished merge.
type Result struct {
	Output   string
	Inputs   int
	Bytes    int64
	Duration time.Duration
}

// Concatenator runs the ffmpeg concat demuxer with a silence-trimming filter.
type Concatenator struct {
	binary string
	filter string
	logger *slog.Logger
	run    commandRunner
}

// New constructs a concatenator. Empty values fall back to ffmpeg and the
// default silence filter; filter "none" disables filtering.
func New(binary, silenceFilter string, logger *slog.Logger) *Concatenator {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	silenceFilter = strings.TrimSpace(silenceFilter)
	if silenceFilter == "" {
		silenceFilter = defaultSilenceFilter
	}
	if strings.EqualFold(silenceFilter, "none") {
		silenceFilter = ""
	}
	return &Concatenator{
		binary: binary,
		filter: silenceFilter,
		logger: logging.NewComponentLogger(logger, "concat"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (c *Concatenator) WithCommandRunner(r commandRunner) {
	if c != nil && r != nil {
		c.run = r
	}
}

// Concatenate merges req.Inputs into req.Output. The output only appears once
// ffmpeg succeeded; a missing input fails before ffmpeg runs.
func (c *Concatenator) Concatenate(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	output := strings.TrimSpace(req.Output)
	if output == "" {
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "validate", "Output path is required", nil)
	}
	if len(req.Inputs) == 0 {
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "validate", "No chapter audio to concatenate", nil)
	}

	inputs := make([]string, 0, len(req.Inputs))
	var missing []string
	for _, input := range req.Inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			abs = input
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() || info.Size() == 0 {
			missing = append(missing, input)
			continue
		}
		inputs = append(inputs, abs)
	}
	if len(missing) > 0 {
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "validate",
			fmt.Sprintf("Missing chapter audio: %s", strings.Join(missing, ", ")), nil)
	}
	if absOutput, err := filepath.Abs(output); err == nil {
		if slices.Contains(inputs, absOutput) {
			return Result{}, services.Wrap(services.ErrConcatenation, "concat", "validate",
				fmt.Sprintf("Output %s is one of the chapter audio inputs", output), nil)
		}
	}

	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "prepare", fmt.Sprintf("Create %s", dir), err)
	}

	listPath, err := writeListFile(inputs)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "prepare", "Write ffmpeg list file", err)
	}
	defer os.Remove(listPath)

	// Keep the real extension so ffmpeg can pick the output muxer.
	tmpPath := filepath.Join(dir, ".concat-"+filepath.Base(output))
	args := c.buildArgs(listPath, tmpPath)

	logging.WithContext(ctx, c.logger).Debug("executing ffmpeg concat",
		logging.String("output", output),
		logging.Int("inputs", len(inputs)),
		logging.String("filter", c.filter),
	)

	if err := c.run(ctx, c.binary, args...); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "ffmpeg", "ffmpeg failed", err)
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tmpPath)
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "ffmpeg", "ffmpeg did not produce output", err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		_ = os.Remove(tmpPath)
		return Result{}, services.Wrap(services.ErrConcatenation, "concat", "finalize", fmt.Sprintf("Move output to %s", output), err)
	}

	return Result{
		Output:   output,
		Inputs:   len(inputs),
		Bytes:    info.Size(),
		Duration: time.Since(started),
	}, nil
}

func (c *Concatenator) buildArgs(listPath, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}
	if c.filter != "" {
		args = append(args, "-af", c.filter)
	}
	return append(args, outputPath)
}

func writeListFile(inputs []string) (string, error) {
	file, err := os.CreateTemp("", "bookforge-concat-*.txt")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, input := range inputs {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(input, "'", `'\''`))
		b.WriteString("'\n")
	}
	if _, err := file.WriteString(b.String()); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
