// Package loudness implements EBU R128 / ITU-R BS.1770 loudness metering:
// K-weighted momentary, short-term, and gated-integrated loudness, plus
// EBU Tech 3342 loudness range and per-channel sample peak.
package loudness

import (
	"math"

	"github.com/cwbudde/loudness-scanner/dsp/filter/biquad"
)

// Integration window durations in seconds.
const (
	momentaryDuration = 0.4
	shortTermDuration = 3.0
)

// Gating parameters (EBU R128 / Tech 3342).
const (
	absoluteThresholdLUFS = -70.0
	relativeThresholdLU   = -10.0
	lraRelativeOffsetLU   = -20.0
	lraLowerQuantile      = 0.10
	lraUpperQuantile      = 0.95

	maxChannels = 63
)

// perChannel holds the K-weighting filter state and circular history for
// one channel.
type perChannel struct {
	role ChannelRole

	shelf    biquad.Section
	highpass biquad.Section

	// momHistory/shortHistory are circular buffers of this channel's
	// K-weighted squared samples, one slot per sample in the window,
	// storing squared samples directly since that is the only quantity
	// downstream computations ever need.
	momHistory   []float64
	shortHistory []float64

	momSum   float64
	shortSum float64

	peak float64
}

// Meter implements EBU R128 / ITU-R BS.1770 loudness metering for a single
// audio stream (one track). It is owned exclusively by whichever goroutine
// is scanning that track; see the scan package for the worker-pool
// lifecycle that enforces this.
type Meter struct {
	sampleRate float64
	channels   int
	modes      Mode

	chans []perChannel

	momWindowFrames   int
	shortWindowFrames int
	samplesIn100ms    int

	momWriteIdx   int
	shortWriteIdx int

	framesSinceBlock      int
	framesSinceShortBlock int
	totalFrames           int64

	// blockEnergies is the append-only 400ms-window, 100ms-step energy
	// history used for gated integration. shortTermEnergies is the
	// analogous 3s-window history used for loudness range.
	blockEnergies     []float64
	shortTermEnergies []float64
}

// New creates a loudness meter for the given channel count, sample rate,
// and measurement modes. It fails if 100ms does not correspond to a whole
// number of frames at sampleRate, or if channels exceeds the supported
// maximum.
func New(channels int, sampleRate float64, modes Mode, opts ...MeterOption) (*Meter, error) {
	allOpts := append([]MeterOption{
		WithChannels(channels),
		WithSampleRate(sampleRate),
		WithModes(modes),
	}, opts...)

	cfg := applyMeterOptions(allOpts...)

	if cfg.Channels > maxChannels {
		return nil, ErrUnsupportedChannelCount
	}

	samplesIn100ms := cfg.SampleRate / 10
	if samplesIn100ms != math.Trunc(samplesIn100ms) || samplesIn100ms <= 0 {
		return nil, ErrInvalidSampleRate
	}

	m := &Meter{
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		modes:      cfg.Modes,
	}

	m.reconfigure(int(samplesIn100ms))

	return m, nil
}

// NewMeter is an alias for New using functional options only, matching the
// calling convention of the wider dsp package family.
func NewMeter(opts ...MeterOption) (*Meter, error) {
	cfg := applyMeterOptions(opts...)
	return New(cfg.Channels, cfg.SampleRate, cfg.Modes)
}

func (m *Meter) reconfigure(samplesIn100ms int) {
	m.samplesIn100ms = samplesIn100ms
	m.momWindowFrames = int(math.Round(momentaryDuration * m.sampleRate))
	m.shortWindowFrames = int(math.Round(shortTermDuration * m.sampleRate))

	shelfCoeffs, highpassCoeffs := kWeightingStages(m.sampleRate)

	m.chans = make([]perChannel, m.channels)
	for i := range m.chans {
		m.chans[i] = perChannel{
			role:         defaultChannelRole(i),
			shelf:        biquad.Section{Coefficients: shelfCoeffs},
			highpass:     biquad.Section{Coefficients: highpassCoeffs},
			momHistory:   make([]float64, m.momWindowFrames),
			shortHistory: make([]float64, m.shortWindowFrames),
		}
	}
}

// SetChannel assigns the BS.1770 role of a channel. Channel 0 defaults to
// Left, 1 to Right, 2 to Center, 3 to Unused, 4 to LeftSurround, 5 to
// RightSurround; channels beyond that default to Unused.
func (m *Meter) SetChannel(index int, role ChannelRole) error {
	if index < 0 || index >= m.channels {
		return invalidChannelIndexError(index, m.channels)
	}

	m.chans[index].role = role

	return nil
}

// Reset clears all integration state and peak values, as if the meter had
// just been constructed.
func (m *Meter) Reset() {
	for i := range m.chans {
		c := &m.chans[i]
		c.shelf.Reset()
		c.highpass.Reset()

		for j := range c.momHistory {
			c.momHistory[j] = 0
		}

		for j := range c.shortHistory {
			c.shortHistory[j] = 0
		}

		c.momSum = 0
		c.shortSum = 0
		c.peak = 0
	}

	m.momWriteIdx = 0
	m.shortWriteIdx = 0
	m.framesSinceBlock = 0
	m.framesSinceShortBlock = 0
	m.totalFrames = 0
	m.blockEnergies = nil
	m.shortTermEnergies = nil
}

// addFrame processes one interleaved, already-normalized ([-1,1)) frame.
func (m *Meter) addFrame(frame []float64) {
	for i := range m.chans {
		c := &m.chans[i]

		x := frame[i]

		absX := math.Abs(x)
		if absX > c.peak {
			c.peak = absX
		}

		v := c.shelf.ProcessSample(x)
		v = c.highpass.ProcessSample(v)
		sq := v * v

		oldMom := c.momHistory[m.momWriteIdx]
		c.momHistory[m.momWriteIdx] = sq
		c.momSum += sq - oldMom

		if m.modes.has(ModeS) {
			oldShort := c.shortHistory[m.shortWriteIdx]
			c.shortHistory[m.shortWriteIdx] = sq
			c.shortSum += sq - oldShort
		}
	}

	m.momWriteIdx = (m.momWriteIdx + 1) % m.momWindowFrames
	if m.modes.has(ModeS) {
		m.shortWriteIdx = (m.shortWriteIdx + 1) % m.shortWindowFrames
	}

	m.totalFrames++

	m.framesSinceBlock++
	if m.framesSinceBlock >= m.samplesIn100ms {
		m.framesSinceBlock = 0

		if m.modes.has(ModeI) {
			m.blockEnergies = append(m.blockEnergies, m.momentaryEnergy())
		}
	}

	if m.modes.has(ModeLRA) {
		m.framesSinceShortBlock++
		if m.framesSinceShortBlock >= m.samplesIn100ms {
			m.framesSinceShortBlock = 0
			m.shortTermEnergies = append(m.shortTermEnergies, m.shortTermEnergy())
		}
	}
}

func (m *Meter) momentaryEnergy() float64 {
	sum := 0.0
	for i := range m.chans {
		c := &m.chans[i]
		sum += c.role.weight() * (c.momSum / float64(m.momWindowFrames))
	}

	return sum
}

func (m *Meter) shortTermEnergy() float64 {
	sum := 0.0
	for i := range m.chans {
		c := &m.chans[i]
		sum += c.role.weight() * (c.shortSum / float64(m.shortWindowFrames))
	}

	return sum
}

// AddFramesF64 processes an interleaved block of already-normalized
// [-1,1) float64 samples.
func (m *Meter) AddFramesF64(buf []float64) {
	for i := 0; i+m.channels <= len(buf); i += m.channels {
		m.addFrame(buf[i : i+m.channels])
	}
}

// AddFramesF32 processes an interleaved block of float32 samples.
func (m *Meter) AddFramesF32(buf []float32) {
	frame := make([]float64, m.channels)

	for i := 0; i+m.channels <= len(buf); i += m.channels {
		for c := range m.channels {
			frame[c] = float64(buf[i+c])
		}

		m.addFrame(frame)
	}
}

// AddFramesI16 processes an interleaved block of signed 16-bit samples,
// normalized by the maximum positive magnitude of int16 (32767).
func (m *Meter) AddFramesI16(buf []int16) {
	const scale = 1.0 / 32767.0

	frame := make([]float64, m.channels)

	for i := 0; i+m.channels <= len(buf); i += m.channels {
		for c := range m.channels {
			frame[c] = float64(buf[i+c]) * scale
		}

		m.addFrame(frame)
	}
}

// AddFramesI32 processes an interleaved block of signed 32-bit samples,
// normalized by the maximum positive magnitude of int32 (2147483647).
func (m *Meter) AddFramesI32(buf []int32) {
	const scale = 1.0 / 2147483647.0

	frame := make([]float64, m.channels)

	for i := 0; i+m.channels <= len(buf); i += m.channels {
		for c := range m.channels {
			frame[c] = float64(buf[i+c]) * scale
		}

		m.addFrame(frame)
	}
}

// LoudnessMomentary returns the loudness of the last <=400ms in LUFS.
func (m *Meter) LoudnessMomentary() (float64, error) {
	if !m.modes.has(ModeM) {
		return math.NaN(), ErrModeUnavailable
	}

	if m.totalFrames == 0 {
		return math.NaN(), nil
	}

	return toLUFS(m.momentaryEnergy()), nil
}

// LoudnessShortTerm returns the loudness of the last <=3000ms in LUFS.
func (m *Meter) LoudnessShortTerm() (float64, error) {
	if !m.modes.has(ModeS) {
		return math.NaN(), ErrModeUnavailable
	}

	if m.totalFrames == 0 {
		return math.NaN(), nil
	}

	return toLUFS(m.shortTermEnergy()), nil
}

// LoudnessGlobal returns the gated integrated loudness of everything
// processed so far, in LUFS, or NaN if no block passed either gate.
func (m *Meter) LoudnessGlobal() (float64, error) {
	if !m.modes.has(ModeI) {
		return math.NaN(), ErrModeUnavailable
	}

	return gatedLoudness(m.blockEnergies), nil
}

// LoudnessRange returns the EBU Tech 3342 loudness range in LU.
func (m *Meter) LoudnessRange() (float64, error) {
	if !m.modes.has(ModeLRA) {
		return math.NaN(), ErrModeUnavailable
	}

	return loudnessRange(m.shortTermEnergies), nil
}

// SamplePeaks returns the maximum absolute normalized sample seen per
// channel since the last Reset. The returned slice is a copy.
func (m *Meter) SamplePeaks() []float64 {
	peaks := make([]float64, m.channels)
	for i := range m.chans {
		peaks[i] = m.chans[i].peak
	}

	return peaks
}

// MaxSamplePeak returns the largest sample peak across all channels.
func (m *Meter) MaxSamplePeak() float64 {
	peak := 0.0
	for i := range m.chans {
		if m.chans[i].peak > peak {
			peak = m.chans[i].peak
		}
	}

	return peak
}

// BlockEnergies returns the append-only 400ms-window energy history used
// for gated integration. Exposed so the aggregate package can concatenate
// block lists across tracks of an album without recomputing them.
func (m *Meter) BlockEnergies() []float64 {
	return m.blockEnergies
}

// ShortTermEnergies returns the append-only 3s-window energy history used
// for loudness range.
func (m *Meter) ShortTermEnergies() []float64 {
	return m.shortTermEnergies
}

// SampleRate returns the meter's configured sample rate.
func (m *Meter) SampleRate() float64 { return m.sampleRate }

// Channels returns the meter's configured channel count.
func (m *Meter) Channels() int { return m.channels }

// toLUFS converts a mean-square energy to LUFS per BS.1770: L = -0.691 +
// 10*log10(E). Non-positive energy maps to -Inf, the DSP sentinel used
// internally by gating comparisons (always below any real threshold);
// callers needing "no data yet" semantics check totalFrames instead.
func toLUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return math.Inf(-1)
	}

	return -0.691 + 10.0*math.Log10(meanSquare)
}
