package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bookforge/internal/bookspec"
	"bookforge/internal/config"
	"bookforge/internal/logging"
	"bookforge/internal/notifications"
	"bookforge/internal/runner"
	"bookforge/internal/services"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var envFileFlag string
	var numChapters int
	var concatFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &envFileFlag)

	rootCmd := &cobra.Command{
		Use:   "bookforge <spec-file>",
		Short: "Generate and narrate audiobook chapters with an LLM",
		Long: "bookforge writes the next chapters of a book from its spec file, narrates each\n" +
			"chapter to audio, and records progress so later runs continue where this one stopped.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runGeneration(cmd, ctx, args[0], numChapters, concatFlag)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load environment variables from this file (default .env when present)")
	rootCmd.Flags().IntVarP(&numChapters, "num-chapters", "n", 1, "Number of new chapters to generate")
	rootCmd.Flags().StringVar(&concatFlag, "concat", "", "Concatenate all completed chapter audio into this file")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConcatCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}

func runGeneration(cmd *cobra.Command, ctx *commandContext, specPath string, numChapters int, concatOutput string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "credentials", "", err)
	}
	if concatOutput = strings.TrimSpace(concatOutput); concatOutput != "" {
		if concatOutput, err = config.ExpandPath(concatOutput); err != nil {
			return fmt.Errorf("resolve concat output: %w", err)
		}
	}

	spec, err := bookspec.Load(specPath)
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	a, err := newApp(cfg, logger, func(ch runner.Chapter) {
		printChapter(out, ch)
	})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "%s (%s): generating %d chapter(s)\n", bookspec.DisplayTitle(spec.ID), spec.ID, numChapters)
	started := time.Now()
	result, err := a.runner.Run(cmd.Context(), runner.Request{
		Spec:         spec,
		NumChapters:  numChapters,
		ConcatOutput: concatOutput,
	})
	notifyRun(cmd.Context(), notifications.NewService(cfg), logger, notifications.RunSummary{
		BookID:     spec.ID,
		Title:      bookspec.DisplayTitle(spec.ID),
		Completed:  result.Completed,
		Generated:  len(result.Generated),
		ConcatPath: result.ConcatPath,
		Duration:   time.Since(started),
	}, err)
	if err != nil {
		if result.StartChapter > 0 {
			fmt.Fprintf(out, "Run stopped with %d chapter(s) complete; rerun to continue from chapter %d.\n",
				result.Completed, result.Completed+1)
		}
		return err
	}

	fmt.Fprintf(out, "Done: %d chapter(s) complete for %s (%d generated this run)\n",
		result.Completed, spec.ID, len(result.Generated))
	if result.ConcatPath != "" {
		fmt.Fprintf(out, "Concatenated audio: %s\n", result.ConcatPath)
	}
	return nil
}

func printChapter(out io.Writer, ch runner.Chapter) {
	fmt.Fprintf(out, "\nChapter %d\n", ch.Index)
	fmt.Fprintf(out, "  Text:  %s\n", ch.TextPath)
	fmt.Fprintf(out, "  Audio: %s\n", ch.AudioPath)
	if checkpoint := strings.TrimSpace(ch.Checkpoint); checkpoint != "" {
		fmt.Fprintln(out, "  Progress checkpoint:")
		for _, line := range strings.Split(checkpoint, "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
}

// notifyRun reports the run outcome. Interrupted runs are not reported.
func notifyRun(ctx context.Context, svc notifications.Service, logger *slog.Logger, summary notifications.RunSummary, runErr error) {
	if !svc.Enabled() || errors.Is(runErr, context.Canceled) {
		return
	}
	sendCtx := context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = svc.NotifyRunFailed(sendCtx, summary, runErr)
	} else {
		err = svc.NotifyRunCompleted(sendCtx, summary)
	}
	if err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.String(logging.FieldBookID, summary.BookID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify notifications.ntfy_topic with bookforge test-notify"),
			logging.String(logging.FieldImpact, "run result was not pushed"),
		)
	}
}
