package loudness

import (
	"math"
	"sort"
)

// gatedLoudness implements the two-gate integration algorithm of BS.1770-4
// §3 / R128 §2.2: an absolute gate at -70 LUFS discards silence, then a
// relative gate at (ungated mean - 10 LU) discards quiet passages, and the
// loudness reported is the mean of whatever blocks remain. Returns NaN if
// no block survives the absolute gate.
func gatedLoudness(blockEnergies []float64) float64 {
	aboveAbsolute := aboveThreshold(blockEnergies, powerFromLUFS(absoluteThresholdLUFS))
	if len(aboveAbsolute) == 0 {
		return math.NaN()
	}

	relativeThreshold := powerFromLUFS(toLUFS(meanOf(aboveAbsolute)) + relativeThresholdLU)

	aboveRelative := aboveThreshold(aboveAbsolute, relativeThreshold)
	if len(aboveRelative) == 0 {
		return math.NaN()
	}

	return toLUFS(meanOf(aboveRelative))
}

// GlobalMultiple computes the gated integrated loudness across the
// concatenated block-energy histories of several meters, as used when
// aggregating album loudness from its constituent tracks' Meters.
func GlobalMultiple(perTrackBlocks [][]float64) float64 {
	return gatedLoudness(concat(perTrackBlocks))
}

// loudnessRange implements the EBU Tech 3342 loudness range algorithm: the
// same two-gate filtering as integrated loudness (but with a -20 LU
// relative offset instead of -10 LU), applied to 3s short-term blocks,
// followed by taking the span between the 10th and 95th percentile of the
// surviving, sorted distribution.
func loudnessRange(shortTermEnergies []float64) float64 {
	aboveAbsolute := aboveThreshold(shortTermEnergies, powerFromLUFS(absoluteThresholdLUFS))
	if len(aboveAbsolute) == 0 {
		return 0
	}

	relativeThreshold := powerFromLUFS(toLUFS(meanOf(aboveAbsolute)) + lraRelativeOffsetLU)

	gated := aboveThreshold(aboveAbsolute, relativeThreshold)
	if len(gated) < 2 {
		return 0
	}

	sort.Float64s(gated)

	lowRank := int(math.Floor(float64(len(gated)-1) * lraLowerQuantile))
	highRank := int(math.Ceil(float64(len(gated)-1) * lraUpperQuantile))

	return toLUFS(gated[highRank]) - toLUFS(gated[lowRank])
}

// RangeMultiple computes loudness range across the concatenated
// short-term-energy histories of several meters.
func RangeMultiple(perTrackShortTerm [][]float64) float64 {
	return loudnessRange(concat(perTrackShortTerm))
}

func aboveThreshold(energies []float64, threshold float64) []float64 {
	out := make([]float64, 0, len(energies))

	for _, e := range energies {
		if e >= threshold {
			out = append(out, e)
		}
	}

	return out
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func concat(lists [][]float64) []float64 {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	out := make([]float64, 0, total)
	for _, l := range lists {
		out = append(out, l...)
	}

	return out
}

// powerFromLUFS inverts toLUFS: given a LUFS value, returns the mean-square
// energy that would produce it.
func powerFromLUFS(lufs float64) float64 {
	return math.Pow(10, (lufs+0.691)/10)
}
