// Package app wires the cobra command tree to the core scan/tag
// pipeline. It is the one place that knows about goroutine counts,
// file-tree walking, and process exit codes -- everything below
// cmd/loudnessctl is reusable library code with no CLI concerns.
package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cwbudde/loudness-scanner/decoder"
	"github.com/cwbudde/loudness-scanner/decoder/wav"
)

// Version is the CLI's reported version; set by the release process in
// a real build, hardcoded here since this module has no build-info
// injection step.
const Version = "0.1.0"

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).With().Timestamp().Logger()

// newRegistry returns the decoder registry every subcommand shares: a
// closed set of compiled-in backends, currently just the WAV reference
// decoder.
func newRegistry() *decoder.Registry {
	reg := decoder.NewRegistry()
	reg.Register("wav", wav.Open)

	return reg
}

// Execute builds and runs the root command.
func Execute() error {
	root := newRootCommand()

	return root.Execute()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "loudnessctl",
		Short:   "Measure EBU R128 loudness and write ReplayGain tags",
		Version: Version,
	}

	root.AddCommand(newScanCommand())
	root.AddCommand(newTagCommand())
	root.AddCommand(newDumpCommand())

	return root
}

// reportSummary prints the final success/partial-failure line on scan
// and tag runs and returns the process exit code.
func reportSummary(cmd *cobra.Command, scanned, skipped, failed int) int {
	if failed == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "done: %d scanned, %d skipped\n", scanned, skipped)
		return 0
	}

	fmt.Fprintf(cmd.OutOrStdout(), "done: %d scanned, %d skipped, %d failed\n", scanned, skipped, failed)

	return 1
}
