// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"
)

func testChainConfig() ChainConfig {
	return ChainConfig{
		SampleRate:          44100,
		NormalizerWindowS:   1.0,
		BassCenterHz:        100,
		BassQ:               1.0,
		EnergyWindowSamples: 1102, // ~25ms at 44.1kHz
	}
}

func TestChainStepIncrementsSampleIndex(t *testing.T) {
	c := NewChain(testChainConfig())
	for i := uint64(0); i < 1000; i++ {
		c.Step(0)
		if c.SampleIndex != i+1 {
			t.Fatalf("SampleIndex = %d, want %d", c.SampleIndex, i+1)
		}
	}
}

func TestChainSilenceProducesNoEnergy(t *testing.T) {
	c := NewChain(testChainConfig())
	var energy float64
	for i := 0; i < 44100; i++ {
		_, _, energy = c.Step(0)
	}
	if energy > 1e-9 {
		t.Errorf("energy from silence = %v, want ~0", energy)
	}
}

func TestChainHealthyAfterNormalOperation(t *testing.T) {
	c := NewChain(testChainConfig())
	for i := 0; i < 10000; i++ {
		c.Step(math.Sin(float64(i) * 0.01))
	}
	if !c.Healthy() {
		t.Error("chain reported unhealthy after normal operation")
	}
}

func TestChainRecoverFromFault(t *testing.T) {
	c := NewChain(testChainConfig())
	c.BassFilter.z1 = math.NaN()
	if c.Healthy() {
		t.Fatal("expected chain to report unhealthy with NaN delay register")
	}
	c.RecoverFromFault()
	if !c.Healthy() {
		t.Error("chain still unhealthy after RecoverFromFault")
	}
	// A step after recovery must produce a finite result.
	_, bass, energy := c.Step(0.1)
	if math.IsNaN(bass) || math.IsNaN(energy) {
		t.Errorf("chain still producing NaN after recovery: bass=%v energy=%v", bass, energy)
	}
}
