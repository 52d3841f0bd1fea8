// SPDX-License-Identifier: MIT
// Package spectrum computes windowed FFT magnitude snapshots over the
// signal and bass rings, for diagnostic display and the GPU handoff
// contract's spectrum buffer binding. It holds no opinion on beat or tempo
// detection; it is a read-only view over whatever dsp.Ring the caller feeds
// it.
package spectrum

import (
	"fmt"
	"log"
	"math/cmplx"
	"strings"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"visualizer/internal/dsp"
	"visualizer/pkg/bitint"
)

// WindowFunc selects the window applied to the input frame before the FFT.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// ParseWindowFunc converts a case-insensitive name to a WindowFunc, falling
// back to Hann with an error if the name is unrecognized.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("spectrum: unknown window function %q", name)
	}
}

func applyWindow(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		log.Printf("spectrum: unknown window function %d, defaulting to Hann", w)
		window.Hann(coeffs)
	}
}

// workspace holds the buffers an Analyzer reuses across calls so that
// Process never allocates on the audio callback's hot path.
type workspace struct {
	frame     []float64
	fftOutput []complex128
	magnitude []float64
	window    []float64
	mu        sync.RWMutex
}

// Analyzer computes a windowed FFT magnitude spectrum from the most recent
// fftSize samples of a dsp.Ring[float64]. One Analyzer serves one ring; the
// audio engine owns one for the wideband signal and one for the bass signal.
type Analyzer struct {
	fft        *fourier.FFT
	fftSize    int
	sampleRate float64
	ws         workspace
}

// NewAnalyzer creates an analyzer. fftSize must be a power of two.
func NewAnalyzer(fftSize int, sampleRate float64, w WindowFunc) (*Analyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("spectrum: fft size must be a power of two, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrum: sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, fftSize)
	applyWindow(coeffs, w)
	magnitudeSize := fftSize/2 + 1

	return &Analyzer{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		sampleRate: sampleRate,
		ws: workspace{
			frame:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    coeffs,
		},
	}, nil
}

// Process reads the fftSize most recent samples from ring, windows them,
// and updates the magnitude snapshot. Safe to call from the audio callback;
// GetMagnitudes/GetMagnitudesInto may be called concurrently from a render
// or export goroutine.
func (a *Analyzer) Process(ring *dsp.Ring[float64]) {
	a.ws.mu.Lock()
	for i := 0; i < a.fftSize; i++ {
		// ring.At(0) is newest; reading backwards fills frame oldest-first.
		a.ws.frame[a.fftSize-1-i] = ring.At(i) * a.ws.window[a.fftSize-1-i]
	}
	a.fft.Coefficients(a.ws.fftOutput, a.ws.frame)
	for i, c := range a.ws.fftOutput {
		a.ws.magnitude[i] = cmplx.Abs(c)
	}
	a.ws.mu.Unlock()
}

// GetMagnitudes returns a copy of the latest magnitude spectrum.
func (a *Analyzer) GetMagnitudes() []float64 {
	a.ws.mu.RLock()
	defer a.ws.mu.RUnlock()
	out := make([]float64, len(a.ws.magnitude))
	copy(out, a.ws.magnitude)
	return out
}

// GetMagnitudesInto copies the latest magnitude spectrum into dest, which
// must have length equal to FFTSize()/2+1. Avoids allocation for callers on
// a hot path of their own.
func (a *Analyzer) GetMagnitudesInto(dest []float64) error {
	a.ws.mu.RLock()
	defer a.ws.mu.RUnlock()
	if len(dest) != len(a.ws.magnitude) {
		return fmt.Errorf("spectrum: destination length %d does not match %d", len(dest), len(a.ws.magnitude))
	}
	copy(dest, a.ws.magnitude)
	return nil
}

// FrequencyForBin returns the center frequency in Hz for a magnitude bin.
func (a *Analyzer) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.ws.magnitude) {
		return 0
	}
	return float64(bin) * (a.sampleRate / float64(a.fftSize))
}

// FFTSize returns the configured FFT size.
func (a *Analyzer) FFTSize() int {
	return a.fftSize
}

// SampleRate returns the configured sample rate.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}
