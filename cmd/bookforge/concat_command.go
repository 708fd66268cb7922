package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookforge/internal/bookspec"
	"bookforge/internal/config"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "concat <spec-file|book-id> <output>",
		Short: "Concatenate the audio of all completed chapters without generating",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			bookID, err := bookspec.ResolveID(args[0])
			if err != nil {
				return err
			}
			output, err := config.ExpandPath(args[1])
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.runner.Concatenate(cmd.Context(), bookID, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Concatenated %d chapter(s) of %s into %s\n",
				result.Completed, bookID, result.ConcatPath)
			return nil
		},
	}
}
