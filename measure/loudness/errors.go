package loudness

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Meter construction and configuration.
var (
	// ErrInvalidSampleRate is returned when 100ms does not divide the
	// sample rate into a whole number of frames.
	ErrInvalidSampleRate = errors.New("loudness: sample rate does not divide evenly into 100ms blocks")

	// ErrUnsupportedChannelCount is returned when channels exceeds the
	// maximum the meter can address (63).
	ErrUnsupportedChannelCount = errors.New("loudness: channel count must be < 64")

	// ErrModeUnavailable is returned when a loudness getter is called
	// without its required mode enabled.
	ErrModeUnavailable = errors.New("loudness: meter was not configured with the required mode")
)

func invalidChannelIndexError(index, channels int) error {
	return fmt.Errorf("loudness: channel index %d out of range [0,%d)", index, channels)
}
