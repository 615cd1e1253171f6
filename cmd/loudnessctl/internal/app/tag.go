package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/loudness-scanner/group"
	"github.com/cwbudde/loudness-scanner/loudnesserr"
	"github.com/cwbudde/loudness-scanner/measure/loudness"
	"github.com/cwbudde/loudness-scanner/scan"
	"github.com/cwbudde/loudness-scanner/tags"
	"github.com/cwbudde/loudness-scanner/tags/opusgain"
)

// taggableExtensions is the union every format subpackage dispatches
// on, plus "opus" which tags.Write special-cases. Notably excludes
// "wav": the reference decoder reads it, but no format subpackage
// writes ReplayGain tags into a plain WAV container.
var taggableExtensions = func() map[string]bool {
	m := make(map[string]bool)
	for _, ext := range []string{"mp3", "mp2", "flac", "ogg", "oga", "opus", "mpc", "wv", "mp4", "m4a"} {
		m[ext] = true
	}

	return m
}()

func newTagCommand() *cobra.Command {
	var (
		track            bool
		dryRun           bool
		incremental      bool
		forceAsAlbum     bool
		vorbisgainCompat bool
		opusHeaderGain   string
		workers          int
	)

	cmd := &cobra.Command{
		Use:   "tag [paths...]",
		Short: "Measure loudness and write ReplayGain tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opusInfo opusgain.TagInfo

			if opusHeaderGain != "" {
				info, err := parseOpusHeaderGain(opusHeaderGain)
				if err != nil {
					return err
				}

				opusInfo = info
			}

			opusInfo.VorbisgainCompat = vorbisgainCompat

			reg := newRegistry()

			tracks, err := collectTracks(args, map[string]bool{"wav": true})
			if err != nil {
				return err
			}

			batches := group.Stream(tracks, group.Options{PerTrackOnly: track, ForceSingleAlbum: forceAsAlbum})

			sched := scan.New(reg, workerCount(workers), loudness.ModeM|loudness.ModeS|loudness.ModeI|loudness.ModeLRA)
			outcomes, report := sched.Run(context.Background(), batches)

			failed := report.Failed
			skipped := report.Skipped

			for _, outcome := range outcomes {
				f, s := writeAlbumTags(cmd, outcome, dryRun, incremental, opusInfo)
				failed += f
				skipped += s
			}

			if reportSummary(cmd, report.Scanned, skipped, failed) != 0 {
				return errPartialFailure
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&track, "track", false, "per-track only, no album aggregation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "measure but do not write tags")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "skip files that already carry a ReplayGain tag")
	cmd.Flags().BoolVar(&forceAsAlbum, "force-as-album", false, "treat all inputs as a single album")
	cmd.Flags().BoolVar(&vorbisgainCompat, "opus-vorbisgain-compat", false, "also write legacy REPLAYGAIN_* fields to Opus comments")
	cmd.Flags().StringVar(&opusHeaderGain, "opus-header-gain", "", "opus header gain spec: a dB number, r128[,track][,offset=DB], or rg[,track][,offset=DB]")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")

	return cmd
}

// writeAlbumTags tags every successfully-scanned track in outcome and
// returns the number of additional tag-write failures and skipped
// tracks it encountered (on top of the scan failures scan.Run already
// reported).
func writeAlbumTags(cmd *cobra.Command, outcome scan.AlbumOutcome, dryRun, incremental bool, opusInfo opusgain.TagInfo) (failures, skipped int) {
	out := cmd.OutOrStdout()

	for _, t := range outcome.Tracks {
		if t.Err != nil {
			fmt.Fprintf(out, "FAIL  %s: %v\n", t.Track.Path, t.Err)
			continue
		}

		path := t.Track.Path
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

		if !taggableExtensions[ext] {
			fmt.Fprintf(out, "SKIP  %s: not a taggable container\n", path)
			skipped++
			continue
		}

		if incremental {
			has, err := tags.Has(path)
			if err == nil && has {
				fmt.Fprintf(out, "SKIP  %s: already tagged\n", path)
				skipped++
				continue
			}
		}

		gd := tags.GainData{
			TrackGain: t.Track.Gain,
			TrackPeak: t.Track.PeakLinear,
			AlbumGain: outcome.Album.Gain,
			AlbumPeak: outcome.Album.PeakLinear,
			AlbumMode: outcome.AlbumMode,
		}

		if dryRun {
			fmt.Fprintf(out, "DRY   %s: track %+.2f dB, peak %.6f\n", path, gd.TrackGain, gd.TrackPeak)
			continue
		}

		if ext == "opus" {
			if err := tags.Write(path, gd, opusInfo); err != nil {
				failures++
				log.Error().Str("path", path).Str("kind", loudnesserr.TagWriteFailed.String()).Err(err).Msg("tag write failed")
				fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)
			}

			continue
		}

		if err := tags.Write(path, gd, opusgain.TagInfo{}); err != nil {
			failures++
			log.Error().Str("path", path).Str("kind", loudnesserr.TagWriteFailed.String()).Err(err).Msg("tag write failed")
			fmt.Fprintf(out, "FAIL  %s: %v\n", path, err)

			continue
		}

		fmt.Fprintf(out, "OK    %s\n", path)
	}

	return failures, skipped
}
