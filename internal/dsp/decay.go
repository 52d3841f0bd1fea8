// SPDX-License-Identifier: MIT
package dsp

import "math"

// DecayNormalizer rescales a signal so its short-term absolute amplitude
// tracks 1.0, independent of input volume. The running peak decays
// geometrically each sample; a new sample that exceeds the decayed peak
// becomes the new peak.
//
// Grounded on original_source/src/filters/max_decay_normalizer.rs: the
// update rule is p = max(|x|, p*decay), out = x / max(p, epsilon).
type DecayNormalizer struct {
	Peak    float64
	Decay   float64
	Epsilon float64
}

// NewDecayNormalizer builds a normalizer whose peak decays to 1/e over
// windowSeconds of audio at sampleRate. epsilon floors the divisor so
// silence never divides by (near) zero.
func NewDecayNormalizer(sampleRate, windowSeconds, epsilon float64) *DecayNormalizer {
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	decay := math.Exp(-1.0 / (sampleRate * windowSeconds))
	return &DecayNormalizer{
		Peak:    epsilon,
		Decay:   decay,
		Epsilon: epsilon,
	}
}

// Step processes one sample and returns the normalized output.
func (n *DecayNormalizer) Step(x float64) float64 {
	abs := x
	if abs < 0 {
		abs = -abs
	}
	decayed := n.Peak * n.Decay
	if abs > decayed {
		n.Peak = abs
	} else {
		n.Peak = decayed
	}
	divisor := n.Peak
	if divisor < n.Epsilon {
		divisor = n.Epsilon
	}
	return x / divisor
}

// Reset clears the running peak back to epsilon. Not called during a normal
// session (the normalizer is stateful for the process lifetime); exposed
// for the NaN-recovery path in internal/audio.
func (n *DecayNormalizer) Reset() {
	n.Peak = n.Epsilon
}
