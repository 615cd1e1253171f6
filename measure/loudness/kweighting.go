package loudness

import (
	"math"

	"github.com/cwbudde/loudness-scanner/dsp/filter/biquad"
)

// K-weighting filter parameters from ITU-R BS.1770-4. The cascade is a
// high-shelf "pre-filter" approximating a listener's head, followed by a
// 2nd-order high-pass ("RLB", Revised Low-frequency B-curve).
const (
	shelfFreqHz = 1500.0
	shelfGainDB = 4.0
	shelfQ      = 1 / math.Sqrt2

	highpassFreqHz = 38.0
	highpassQ      = 0.5003268

	defaultQ = 1 / math.Sqrt2
)

// kWeightingStages returns the two biquad stages of the K-weighting
// cascade for the given sample rate.
//
// At 48kHz the coefficients are the canonical constants published in
// BS.1770-4 Annex 2 (Table 1), carried verbatim rather than re-derived,
// since re-deriving them through the generic bilinear-transform formulas
// below reproduces them only to limited precision and every reference
// implementation of R128 hardcodes them. For any other supported sample
// rate the stages are re-derived with the same bilinear-transform approach
// the reference implementation uses, parameterized by (f0, Q, gainDB).
func kWeightingStages(sampleRate float64) (shelf, highpass biquad.Coefficients) {
	if sampleRate == 48000 {
		return canonical48kShelf, canonical48kHighpass
	}

	return highShelf(shelfFreqHz, shelfGainDB, shelfQ, sampleRate),
		highpassRBJ(highpassFreqHz, highpassQ, sampleRate)
}

// canonical48kShelf and canonical48kHighpass are the BS.1770-4 Annex 2
// reference coefficients for a 48kHz sample rate.
var (
	canonical48kShelf = biquad.Coefficients{
		B0: 1.53512485958697,
		B1: -2.69169618940638,
		B2: 1.19839281085285,
		A1: -1.69065929318241,
		A2: 0.73248077421585,
	}
	canonical48kHighpass = biquad.Coefficients{
		B0: 1.0,
		B1: -2.0,
		B2: 1.0,
		A1: -1.99004745483398,
		A2: 0.99007225036621,
	}
)

// highShelf designs a high-shelf biquad via the Audio EQ Cookbook (RBJ)
// formulas and the bilinear transform, for arbitrary sample rates.
func highShelf(freqHz, gainDB, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freqHz, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)
	a := math.Pow(10, gainDB/40)
	beta := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cw + beta)
	b1 := -2 * a * ((a - 1) + (a+1)*cw)
	b2 := a * ((a + 1) + (a-1)*cw - beta)
	a0 := (a + 1) - (a-1)*cw + beta
	a1 := 2 * ((a - 1) - (a+1)*cw)
	a2 := (a + 1) - (a-1)*cw - beta

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

// highpassRBJ designs a 2nd-order high-pass biquad with quality factor q via
// the bilinear transform, for arbitrary sample rates.
func highpassRBJ(freqHz, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freqHz, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	b0 := (1 + cw) / 2
	b1 := -(1 + cw)
	b2 := (1 + cw) / 2
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

func normalizedW0(freqHz, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, false
	}

	nyquist := sampleRate / 2
	if freqHz <= 0 || freqHz >= nyquist || math.IsNaN(freqHz) || math.IsInf(freqHz, 0) {
		return 0, false
	}

	return 2 * math.Pi * freqHz / sampleRate, true
}

func normalizedQ(q float64) float64 {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return defaultQ
	}

	return q
}

func normalizeBiquad(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Coefficients{}
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// dbToPowerFactor converts a power-domain (10*log10) dB value to a linear
// multiplier, as opposed to the amplitude-domain (20*log10) convention
// used elsewhere for gains on samples.
func dbToPowerFactor(db float64) float64 {
	return math.Pow(10, db/10)
}
