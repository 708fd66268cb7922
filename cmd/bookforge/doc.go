// Package main hosts the bookforge CLI entrypoint and command graph.
//
// The root command runs a generation pass for one book. Subcommands report
// progress, show the run journal, concatenate existing chapter audio, run
// preflight checks, and scaffold configuration. Configuration and logging are
// resolved once in commandContext so subcommands only deal with output.
package main
