// Package scan drives a worker-pool scheduling model: a bounded pool of
// goroutines decodes and measures tracks in parallel, each owning one
// loudness.Meter exclusively for the duration of a single track, while
// album aggregation happens only after every track in a group.Batch has
// finished.
package scan

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/loudness-scanner/aggregate"
	"github.com/cwbudde/loudness-scanner/decoder"
	"github.com/cwbudde/loudness-scanner/group"
	"github.com/cwbudde/loudness-scanner/loudnesserr"
	"github.com/cwbudde/loudness-scanner/measure/loudness"
)

// ScanResult is one track's outcome, emitted in input order regardless
// of which worker finished it first.
type ScanResult struct {
	Track aggregate.TrackResult
	Err   error
}

// RunReport summarizes a run for the CLI's exit-code policy: zero on
// success, non-zero if any file failed to tag or scan.
type RunReport struct {
	Scanned int
	Skipped int
	Failed  int
}

// AlbumOutcome is one group.Batch's aggregation result, or the per-track
// errors that prevented it.
type AlbumOutcome struct {
	Tracks    []ScanResult
	Album     aggregate.AlbumResult
	AlbumMode bool // mirrors the originating group.Batch's AlbumMode
	Skipped   bool // true for a batch where no track scanned cleanly
}

// Scheduler owns the decoder registry and worker-pool size a scan run
// uses.
type Scheduler struct {
	Registry *decoder.Registry
	Workers  int
	Modes    loudness.Mode
}

// New returns a Scheduler. workers < 1 is treated as 1.
func New(reg *decoder.Registry, workers int, modes loudness.Mode) *Scheduler {
	if workers < 1 {
		workers = 1
	}

	return &Scheduler{Registry: reg, Workers: workers, Modes: modes}
}

// trackOutcome pairs a ScanResult with the raw block-energy history its
// meter produced, needed by album-level re-gating; nil blocks on error.
type trackOutcome struct {
	result ScanResult
	blocks []float64
}

// ScanTrack opens path through the registry, feeds every decoded frame
// into a fresh Meter, and returns the finished track result plus that
// meter's block-energy history. Cancellation is cooperative: ctx is
// checked at each decoder-read boundary, and a cancelled track's
// partial meter state is discarded without producing a result.
func (s *Scheduler) ScanTrack(ctx context.Context, path string) (aggregate.TrackResult, []float64, error) {
	ext := extension(path)

	d, err := s.Registry.Open(path, ext)
	if err != nil {
		return aggregate.TrackResult{}, nil, loudnesserr.Wrap(loudnesserr.DecoderOpenFailed, path, err)
	}
	defer s.Registry.Close(d)

	m, err := loudness.New(d.Channels(), d.SampleRate(), s.Modes)
	if err != nil {
		return aggregate.TrackResult{}, nil, loudnesserr.Wrap(loudnesserr.InvalidSampleRate, path, err)
	}

	for i, role := range d.ChannelRoles() {
		if err := m.SetChannel(i, role); err != nil {
			return aggregate.TrackResult{}, nil, loudnesserr.Wrap(loudnesserr.InternalInvariant, path, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return aggregate.TrackResult{}, nil, err
		}

		frames, err := d.ReadFrames()
		if err != nil {
			return aggregate.TrackResult{}, nil, loudnesserr.Wrap(loudnesserr.DecoderReadFailed, path, err)
		}

		if len(frames) == 0 {
			break
		}

		m.AddFramesF32(frames)
	}

	result, err := aggregate.Track(path, m)
	if err != nil {
		return aggregate.TrackResult{}, nil, loudnesserr.Wrap(loudnesserr.InternalInvariant, path, err)
	}

	return result, m.BlockEnergies(), nil
}

// Run scans every batch in order, parallelizing the tracks within each
// batch across the Scheduler's worker pool, and aggregates each batch
// only once all of its tracks have joined. Batches themselves are
// processed sequentially so output order always follows input order.
func (s *Scheduler) Run(ctx context.Context, batches []group.Batch) ([]AlbumOutcome, RunReport) {
	var (
		outcomes []AlbumOutcome
		report   RunReport
	)

	for _, batch := range batches {
		outcomes = append(outcomes, s.runBatch(ctx, batch, &report))
	}

	return outcomes, report
}

func (s *Scheduler) runBatch(ctx context.Context, batch group.Batch, report *RunReport) AlbumOutcome {
	results := make([]trackOutcome, len(batch.Tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)

	for i, track := range batch.Tracks {
		i, track := i, track

		g.Go(func() error {
			result, blocks, err := s.ScanTrack(gctx, track.Path)
			results[i] = trackOutcome{
				result: ScanResult{Track: result, Err: err},
				blocks: blocks,
			}

			return nil // per-track errors are reported, not fatal to the group
		})
	}

	_ = g.Wait()

	outcome := AlbumOutcome{Tracks: make([]ScanResult, len(results)), AlbumMode: batch.AlbumMode}

	var (
		clean       []aggregate.TrackResult
		cleanBlocks [][]float64
	)

	for i, r := range results {
		outcome.Tracks[i] = r.result

		if r.result.Err != nil {
			report.Failed++
			continue
		}

		report.Scanned++
		clean = append(clean, r.result.Track)
		cleanBlocks = append(cleanBlocks, r.blocks)
	}

	if len(clean) == 0 {
		outcome.Skipped = true
		return outcome
	}

	// Album stats are computed even for a per-track-only singleton batch
	// (trivially equal to the lone track's own values); batch.AlbumMode
	// is what the tag writer consults to decide whether to apply them.
	outcome.Album = aggregate.Album(clean, cleanBlocks)

	return outcome
}

func extension(path string) string {
	ext := filepath.Ext(path)

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
