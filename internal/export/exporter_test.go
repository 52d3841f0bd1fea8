// SPDX-License-Identifier: MIT
package export

import (
	"math"
	"testing"

	"visualizer/internal/beat"
	"visualizer/internal/dsp"
	"visualizer/internal/spectrum"
	"visualizer/internal/tempo"
)

func newTestSources(t *testing.T) Sources {
	t.Helper()
	chain := dsp.NewChain(dsp.ChainConfig{
		SampleRate:          44100,
		NormalizerWindowS:   1.0,
		BassCenterHz:        100,
		BassQ:               1.0,
		EnergyWindowSamples: 1024,
	})
	detector := beat.NewDetector(beat.DefaultConfig(), 32, nil, nil)
	tracker := tempo.New(44100, tempo.Range{SlowestBPM: 60, FastestBPM: 200})

	signalRing := dsp.NewRing[float64](1024)
	bassRing := dsp.NewRing[float64](1024)

	for i := 0; i < 8192; i++ {
		x := math.Sin(float64(i) * 0.05)
		wideband, bass, energy := chain.Step(x)
		signalRing.Append(wideband)
		bassRing.Append(bass)
		detector.Step(chain.SampleIndex, energy)
	}

	signalFFT, err := spectrum.NewAnalyzer(1024, 44100, spectrum.Hann)
	if err != nil {
		t.Fatal(err)
	}
	bassFFT, err := spectrum.NewAnalyzer(1024, 44100, spectrum.Hann)
	if err != nil {
		t.Fatal(err)
	}
	signalFFT.Process(signalRing)
	bassFFT.Process(bassRing)

	return Sources{
		Chain:      chain,
		Detector:   detector,
		Tracker:    tracker,
		SignalFFT:  signalFFT,
		BassFFT:    bassFFT,
		SignalRing: signalRing,
		BassRing:   bassRing,
	}
}

func TestExporterCaptureIncrementsFrameIndex(t *testing.T) {
	src := newTestSources(t)
	e := NewExporter(1024, 1024/2+1)

	f1 := e.Capture(src, 0.0, false)
	f2 := e.Capture(src, 1.0/60, false)

	if f1.Constants.FrameIndex != 1 || f2.Constants.FrameIndex != 2 {
		t.Errorf("FrameIndex sequence = %d, %d, want 1, 2", f1.Constants.FrameIndex, f2.Constants.FrameIndex)
	}
}

func TestExporterCaptureTracksRealBeats(t *testing.T) {
	src := newTestSources(t)
	e := NewExporter(1024, 1024/2+1)

	e.Capture(src, 0, true)
	e.Capture(src, 0, false)
	f := e.Capture(src, 0, true)

	if f.Constants.RealBeats != 2 {
		t.Errorf("RealBeats = %d, want 2", f.Constants.RealBeats)
	}
	if f.Constants.IsBeat != 1 {
		t.Errorf("IsBeat = %d, want 1 for a beat frame", f.Constants.IsBeat)
	}
}

func TestExporterCaptureFillsRingSnapshotShape(t *testing.T) {
	src := newTestSources(t)
	e := NewExporter(1024, 1024/2+1)
	f := e.Capture(src, 0, false)

	if f.Signal.Size != int32(src.SignalRing.Cap()) {
		t.Errorf("Signal.Size = %d, want %d", f.Signal.Size, src.SignalRing.Cap())
	}
	if len(f.Signal.Data) != src.SignalRing.Cap() {
		t.Errorf("len(Signal.Data) = %d, want %d", len(f.Signal.Data), src.SignalRing.Cap())
	}
	if f.Signal.WriteIndex != int32(src.SignalRing.WriteIndex()) {
		t.Errorf("Signal.WriteIndex = %d, want %d", f.Signal.WriteIndex, src.SignalRing.WriteIndex())
	}
}

func TestExporterCaptureFillsSpectrumSnapshotShape(t *testing.T) {
	src := newTestSources(t)
	e := NewExporter(1024, 1024/2+1)
	f := e.Capture(src, 0, false)

	if f.Spectrum.Size != int32(len(src.SignalFFT.GetMagnitudes())) {
		t.Errorf("Spectrum.Size = %d, want %d", f.Spectrum.Size, len(src.SignalFFT.GetMagnitudes()))
	}
}

func TestExporterReadMatchesLastCapture(t *testing.T) {
	src := newTestSources(t)
	e := NewExporter(1024, 1024/2+1)
	captured := e.Capture(src, 2.5, false)

	var got Frame
	e.Read(&got)
	if got.Constants.FrameIndex != captured.Constants.FrameIndex {
		t.Errorf("Read().Constants.FrameIndex = %d, want %d", got.Constants.FrameIndex, captured.Constants.FrameIndex)
	}
}

func TestExporterConfidenceAndProbabilityBounded(t *testing.T) {
	src := newTestSources(t)
	e := NewExporter(1024, 1024/2+1)
	f := e.Capture(src, 0, false)

	if f.Constants.BPMConfidence < 0 || f.Constants.BPMConfidence > 1 {
		t.Errorf("BPMConfidence = %v, want in [0, 1]", f.Constants.BPMConfidence)
	}
	if f.Constants.BeatFract < 0 || f.Constants.BeatFract >= 1 {
		t.Errorf("BeatFract = %v, want in [0, 1)", f.Constants.BeatFract)
	}
	if f.Constants.BeatProbability < 0 || f.Constants.BeatProbability > 1 {
		t.Errorf("BeatProbability = %v, want in [0, 1]", f.Constants.BeatProbability)
	}
}
