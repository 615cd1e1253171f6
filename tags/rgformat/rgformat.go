// Package rgformat renders ReplayGain gain/peak values into the string
// forms every tag format shares, and exists as its own leaf package so
// that package tags (the per-extension dispatcher) and every per-format
// subpackage (ape, id3v2tag, mp4tag, opusgain, xiph) can import the same
// rendering rules without an import cycle through the dispatcher.
package rgformat

import "fmt"

// GainClampLU bounds rendered gain values; tags clamp to +/-51dB, the
// range RVA2's volume-adjustment field can encode as a fixed-point int16
// in 1/512dB steps without overflow (51 * 512 < 32768).
const GainClampLU = 51.0

// Clamp bounds a gain value to the range every format's encoding can
// represent, applied once at the point a gain is about to be rendered or
// patched into a binary header -- never earlier, so upstream aggregation
// always has the true computed value to reason about.
func Clamp(gainLU float64) float64 {
	switch {
	case gainLU > GainClampLU:
		return GainClampLU
	case gainLU < -GainClampLU:
		return -GainClampLU
	default:
		return gainLU
	}
}

// GainString renders a gain value the way every ReplayGain TXXX/Xiph
// comment field expects: two decimal places, explicit sign, "dB" suffix.
func GainString(gainLU float64) string {
	return fmt.Sprintf("%+.2f dB", Clamp(gainLU))
}

// PeakString renders a peak value to six decimal digits, matching
// scanner-tag's gain_data_strings precision for *_peak fields.
func PeakString(peak float64) string {
	return fmt.Sprintf("%.6f", peak)
}
