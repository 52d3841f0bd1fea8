// SPDX-License-Identifier: MIT
package spectrum

import (
	"math"
	"testing"

	"visualizer/internal/dsp"
	"visualizer/pkg/utils"
)

const testSampleRate = 44100.0

func TestNewAnalyzerRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := NewAnalyzer(1000, testSampleRate, Hann); err == nil {
		t.Fatal("expected error for non-power-of-two fft size")
	}
}

func TestNewAnalyzerRejectsBadSampleRate(t *testing.T) {
	if _, err := NewAnalyzer(1024, 0, Hann); err == nil {
		t.Fatal("expected error for non-positive sample rate")
	}
}

func TestParseWindowFuncKnownNames(t *testing.T) {
	for _, name := range []string{"hann", "Hanning", "HAMMING", "blackman", "nuttall"} {
		if _, err := ParseWindowFunc(name); err != nil {
			t.Errorf("ParseWindowFunc(%q) returned error: %v", name, err)
		}
	}
}

func TestParseWindowFuncUnknownDefaultsToHannWithError(t *testing.T) {
	w, err := ParseWindowFunc("not-a-window")
	if err == nil {
		t.Fatal("expected error for unknown window name")
	}
	if w != Hann {
		t.Errorf("fallback window = %v, want Hann", w)
	}
}

func fillRingWithSine(r *dsp.Ring[float64], n int, freqHz, sampleRate float64) {
	for i := 0; i < n; i++ {
		r.Append(math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate))
	}
}

func TestAnalyzerFindsDominantFrequency(t *testing.T) {
	const fftSize = 1024
	a, err := NewAnalyzer(fftSize, testSampleRate, Hann)
	if err != nil {
		t.Fatal(err)
	}
	ring := dsp.NewRing[float64](fftSize)

	const toneHz = 1000.0
	fillRingWithSine(ring, fftSize*4, toneHz, testSampleRate)

	a.Process(ring)
	mags := a.GetMagnitudes()

	peakBin := utils.FindPeakBin(mags, 0, len(mags)-1)
	peakHz := a.FrequencyForBin(peakBin)
	if math.Abs(peakHz-toneHz) > testSampleRate/float64(fftSize)*2 {
		t.Errorf("peak bin frequency = %v Hz, want near %v Hz", peakHz, toneHz)
	}
}

func TestAnalyzerGetMagnitudesIntoLengthMismatch(t *testing.T) {
	a, err := NewAnalyzer(512, testSampleRate, Hann)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.GetMagnitudesInto(make([]float64, 3)); err == nil {
		t.Fatal("expected error for mismatched destination length")
	}
}

func TestAnalyzerGetMagnitudesIntoMatchesGetMagnitudes(t *testing.T) {
	const fftSize = 256
	a, err := NewAnalyzer(fftSize, testSampleRate, Hann)
	if err != nil {
		t.Fatal(err)
	}
	ring := dsp.NewRing[float64](fftSize)
	fillRingWithSine(ring, fftSize, 440, testSampleRate)
	a.Process(ring)

	want := a.GetMagnitudes()
	got := make([]float64, len(want))
	if err := a.GetMagnitudesInto(got); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at bin %d: %v != %v", i, got[i], want[i])
		}
	}
}

func TestAnalyzerFrequencyForBinOutOfRange(t *testing.T) {
	a, err := NewAnalyzer(512, testSampleRate, Hann)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.FrequencyForBin(-1); got != 0 {
		t.Errorf("FrequencyForBin(-1) = %v, want 0", got)
	}
	if got := a.FrequencyForBin(a.FFTSize()); got != 0 {
		t.Errorf("FrequencyForBin(fftSize) = %v, want 0 (out of range)", got)
	}
}

func TestAnalyzerSilenceProducesNearZeroMagnitude(t *testing.T) {
	const fftSize = 256
	a, err := NewAnalyzer(fftSize, testSampleRate, Hann)
	if err != nil {
		t.Fatal(err)
	}
	ring := dsp.NewRing[float64](fftSize)
	for i := 0; i < fftSize; i++ {
		ring.Append(0)
	}
	a.Process(ring)
	for i, m := range a.GetMagnitudes() {
		if m > 1e-9 {
			t.Fatalf("bin %d magnitude = %v, want ~0 for silence", i, m)
		}
	}
}
