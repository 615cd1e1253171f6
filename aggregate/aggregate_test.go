package aggregate

import (
	"math"
	"testing"

	"github.com/cwbudde/loudness-scanner/internal/testutil"
	"github.com/cwbudde/loudness-scanner/measure/loudness"
)

func TestTrackGain(t *testing.T) {
	cases := []struct {
		loudnessLUFS float64
		want         float64
	}{
		{-18, 0},
		{-20, 2},
		{-10, -8},
	}

	for _, c := range cases {
		if got := TrackGain(c.loudnessLUFS); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("TrackGain(%v) = %v, want %v", c.loudnessLUFS, got, c.want)
		}
	}
}

func TestTrackGain_SilentTrackMapsToReferenceGain(t *testing.T) {
	got := TrackGain(math.NaN())
	if got != 18.0 {
		t.Errorf("TrackGain(NaN) = %v, want 18.0", got)
	}
}

// sineAmplitudeForLoudness picks the amplitude of a 1kHz sine that
// produces approximately the given LUFS, using the same
// empirically-measured -3.031 LUFS-at-amplitude-1.0 baseline the meter
// tests use (amplitude scales loudness by 20*log10(amplitude)).
func sineAmplitudeForLoudness(targetLUFS float64) float64 {
	const baselineLUFS = -3.031
	return math.Pow(10, (targetLUFS-baselineLUFS)/20)
}

func TestAlbum_TwoTracksEqualDuration(t *testing.T) {
	sampleRate := 48000.0
	duration := int(sampleRate * 4)

	track1 := testutil.DeterministicSine(1000, sampleRate, sineAmplitudeForLoudness(-18), duration)
	track2 := testutil.DeterministicSine(1000, sampleRate, sineAmplitudeForLoudness(-24), duration)

	m1, err := loudness.New(1, sampleRate, loudness.ModeI)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m2, err := loudness.New(1, sampleRate, loudness.ModeI)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m1.AddFramesF64(track1)
	m2.AddFramesF64(track2)

	r1, err := Track("track1.wav", m1)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	r2, err := Track("track2.wav", m2)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}

	album := Album([]TrackResult{r1, r2}, [][]float64{m1.BlockEnergies(), m2.BlockEnergies()})

	if album.Loudness >= r1.Loudness || album.Loudness <= r2.Loudness {
		t.Errorf("album loudness %v should fall strictly between track loudnesses %v and %v",
			album.Loudness, r1.Loudness, r2.Loudness)
	}

	const wantApprox = -20.5
	const tolerance = 2.0

	if math.Abs(album.Loudness-wantApprox) > tolerance {
		t.Errorf("album loudness %v too far from expected ballpark %v", album.Loudness, wantApprox)
	}

	if album.PeakLinear < r1.PeakLinear || album.PeakLinear < r2.PeakLinear {
		t.Errorf("album peak %v should be >= both track peaks (%v, %v)", album.PeakLinear, r1.PeakLinear, r2.PeakLinear)
	}
}
