// SPDX-License-Identifier: MIT
package dsp

import "math"

// Chain is the static signal-conditioning pipeline: wideband normalizer ->
// bass band-pass -> bass normalizer -> short-term energy. It is a fixed
// struct of concrete types, not a slice of interfaces, per the "keep the
// chain static and monomorphized" design note: this runs once per input
// sample on the audio callback thread and must not pay for dynamic
// dispatch.
type Chain struct {
	WidebandNormalizer *DecayNormalizer
	BassFilter         *Biquad
	BassNormalizer     *DecayNormalizer
	Energy             *EnergyWindow

	SampleIndex uint64
}

// ChainConfig bundles the construction-time parameters for NewChain.
type ChainConfig struct {
	SampleRate         float64
	NormalizerWindowS  float64 // decay-to-1/e window, both normalizers
	BassCenterHz       float64
	BassQ              float64
	EnergyWindowSamples int
}

// NewChain builds the chain with the given configuration.
func NewChain(cfg ChainConfig) *Chain {
	c := &Chain{
		WidebandNormalizer: NewDecayNormalizer(cfg.SampleRate, cfg.NormalizerWindowS, 1e-6),
		BassFilter:         &Biquad{},
		BassNormalizer:     NewDecayNormalizer(cfg.SampleRate, cfg.NormalizerWindowS, 1e-6),
		Energy:             NewEnergyWindow(cfg.EnergyWindowSamples),
	}
	c.BassFilter.ConfigureBandPass(cfg.SampleRate, cfg.BassCenterHz, cfg.BassQ)
	return c
}

// Step feeds one raw mono sample through the full chain and returns the
// normalized wideband signal, the normalized bass signal, and the current
// short-term bass energy. Also increments SampleIndex, the absolute input
// index used by the beat detector and BPM tracker.
func (c *Chain) Step(raw float64) (wideband, bass, energy float64) {
	wideband = c.WidebandNormalizer.Step(raw)
	filtered := c.BassFilter.Step(wideband)
	bass = c.BassNormalizer.Step(filtered)
	energy = c.Energy.Step(bass)
	c.SampleIndex++
	return wideband, bass, energy
}

// Healthy reports whether every stateful stage still holds finite values.
// Intended to be checked once per sample-block, not per sample.
func (c *Chain) Healthy() bool {
	// Peaks and the energy sum are non-negative, so their sum is finite
	// exactly when each of them is.
	s := c.WidebandNormalizer.Peak + c.BassNormalizer.Peak + c.Energy.sum
	return c.BassFilter.IsFinite() && !math.IsNaN(s) && !math.IsInf(s, 0)
}

// RecoverFromFault resets every stage's mutable state (delay registers,
// running sums, peaks) without reallocating, and leaves coefficients and
// capacities untouched. Used when Healthy() reports false.
func (c *Chain) RecoverFromFault() {
	c.WidebandNormalizer.Reset()
	c.BassFilter.Reset()
	c.BassNormalizer.Reset()
	c.Energy.Reset()
}
