package loudness

import "github.com/cwbudde/loudness-scanner/dsp/core"

// Mode is a flag-set selecting which loudness measurements a Meter keeps
// enough history to compute. Modes form a lattice: enabling ModeS implies
// ModeM, ModeI implies ModeM, and ModeLRA implies both ModeS and ModeI.
type Mode uint8

const (
	// ModeM enables momentary loudness (last 400ms).
	ModeM Mode = 1 << iota
	// ModeS enables short-term loudness (last 3s). Implies ModeM.
	ModeS
	// ModeI enables gated integrated loudness. Implies ModeM.
	ModeI
	// ModeLRA enables loudness-range. Implies ModeS and ModeI.
	ModeLRA
)

// normalize applies the mode lattice, turning on every mode a requested
// mode depends on.
func (m Mode) normalize() Mode {
	if m&ModeLRA != 0 {
		m |= ModeS | ModeI
	}

	if m&ModeS != 0 {
		m |= ModeM
	}

	if m&ModeI != 0 {
		m |= ModeM
	}

	return m
}

func (m Mode) has(flag Mode) bool {
	return m&flag != 0
}

// MeterConfig defines configuration for the loudness meter.
type MeterConfig struct {
	core.ProcessorConfig
	Channels int
	Modes    Mode
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns sensible defaults: stereo, 48kHz, all modes.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		ProcessorConfig: core.DefaultProcessorConfig(),
		Channels:        2,
		Modes:           ModeM | ModeS | ModeI | ModeLRA,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(cfg *MeterConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithChannels sets the number of channels.
func WithChannels(channels int) MeterOption {
	return func(cfg *MeterConfig) {
		if channels > 0 {
			cfg.Channels = channels
		}
	}
}

// WithModes sets the enabled measurement modes.
func WithModes(modes Mode) MeterOption {
	return func(cfg *MeterConfig) {
		cfg.Modes = modes
	}
}

// applyMeterOptions applies zero or more options to the default config.
func applyMeterOptions(opts ...MeterOption) MeterConfig {
	cfg := DefaultMeterConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cfg.Modes = cfg.Modes.normalize()

	return cfg
}
