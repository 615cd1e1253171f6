package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cwbudde/loudness-scanner/group"
	"github.com/cwbudde/loudness-scanner/loudnesserr"
	"github.com/cwbudde/loudness-scanner/measure/loudness"
	"github.com/cwbudde/loudness-scanner/scan"
)

// errPartialFailure signals the partial-failure exit-code policy
// without duplicating the summary line at every call site.
var errPartialFailure = errors.New("one or more files failed to scan or tag")

func newScanCommand() *cobra.Command {
	var (
		track          bool
		forceAsAlbum   bool
		workers        int
	)

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Measure integrated loudness and loudness range without writing tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := newRegistry()

			tracks, err := collectTracks(args, map[string]bool{"wav": true})
			if err != nil {
				return err
			}

			batches := group.Stream(tracks, group.Options{PerTrackOnly: track, ForceSingleAlbum: forceAsAlbum})

			sched := scan.New(reg, workerCount(workers), loudness.ModeM|loudness.ModeS|loudness.ModeI|loudness.ModeLRA)
			outcomes, report := sched.Run(context.Background(), batches)

			for _, outcome := range outcomes {
				printAlbum(cmd, outcome)
			}

			if reportSummary(cmd, report.Scanned, report.Skipped, report.Failed) != 0 {
				return errPartialFailure
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&track, "track", false, "treat every file as its own album (per-track only)")
	cmd.Flags().BoolVar(&forceAsAlbum, "force-as-album", false, "treat all inputs as a single album")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")

	return cmd
}

func workerCount(requested int) int {
	if requested > 0 {
		return requested
	}

	return runtime.GOMAXPROCS(0)
}

func printAlbum(cmd *cobra.Command, outcome scan.AlbumOutcome) {
	out := cmd.OutOrStdout()

	for _, t := range outcome.Tracks {
		if t.Err != nil {
			log.Error().Str("path", t.Track.Path).Str("kind", loudnesserr.Of(t.Err).String()).Err(t.Err).Msg("scan failed")
			fmt.Fprintf(out, "FAIL  %s: %v\n", t.Track.Path, t.Err)

			continue
		}

		fmt.Fprintf(out, "%-40s %8.2f LUFS  LRA %5.2f LU  peak %.6f  gain %+.2f dB\n",
			t.Track.Path, t.Track.Loudness, t.Track.Range, t.Track.PeakLinear, t.Track.Gain)
	}

	if !outcome.Skipped && len(outcome.Album.Tracks) > 1 {
		fmt.Fprintf(out, "  album: %8.2f LUFS  peak %.6f  gain %+.2f dB\n",
			outcome.Album.Loudness, outcome.Album.PeakLinear, outcome.Album.Gain)
	}
}
