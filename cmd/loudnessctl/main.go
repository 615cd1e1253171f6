// Command loudnessctl scans audio files for integrated loudness and
// writes ReplayGain-family tags via its scan, tag, and dump subcommands
// and its --version flag.
package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/loudness-scanner/cmd/loudnessctl/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
