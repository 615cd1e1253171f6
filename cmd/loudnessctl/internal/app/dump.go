package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/loudness-scanner/group"
	"github.com/cwbudde/loudness-scanner/measure/loudness"
	"github.com/cwbudde/loudness-scanner/scan"
)

func newDumpCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "dump [paths...]",
		Short: "Print per-track loudness measurements, one track per line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := newRegistry()

			tracks, err := collectTracks(args, map[string]bool{"wav": true})
			if err != nil {
				return err
			}

			batches := group.Stream(tracks, group.Options{PerTrackOnly: true})

			sched := scan.New(reg, workerCount(workers), loudness.ModeM|loudness.ModeS|loudness.ModeI|loudness.ModeLRA)
			outcomes, report := sched.Run(context.Background(), batches)

			out := cmd.OutOrStdout()

			for _, outcome := range outcomes {
				for _, t := range outcome.Tracks {
					if t.Err != nil {
						fmt.Fprintf(out, "%s\terror=%v\n", t.Track.Path, t.Err)
						continue
					}

					fmt.Fprintf(out, "%s\tloudness=%.3f\trange=%.3f\tpeak=%.6f\tgain=%+.3f\n",
						t.Track.Path, t.Track.Loudness, t.Track.Range, t.Track.PeakLinear, t.Track.Gain)
				}
			}

			if report.Failed > 0 {
				return errPartialFailure
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")

	return cmd
}
