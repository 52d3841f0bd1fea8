// SPDX-License-Identifier: MIT
package render

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"visualizer/internal/beat"
	"visualizer/internal/dsp"
	"visualizer/internal/export"
	"visualizer/internal/spectrum"
	"visualizer/internal/tempo"
)

func newTestSources(t *testing.T) export.Sources {
	t.Helper()
	chain := dsp.NewChain(dsp.ChainConfig{
		SampleRate:          44100,
		NormalizerWindowS:   1.0,
		BassCenterHz:        100,
		BassQ:               1.0,
		EnergyWindowSamples: 256,
	})
	detector := beat.NewDetector(beat.DefaultConfig(), 32, nil, nil)
	tracker := tempo.New(44100, tempo.Range{SlowestBPM: 60, FastestBPM: 200})

	signalRing := dsp.NewRing[float64](256)
	bassRing := dsp.NewRing[float64](256)
	for i := 0; i < 512; i++ {
		wideband, bass, energy := chain.Step(0.1)
		signalRing.Append(wideband)
		bassRing.Append(bass)
		detector.Step(chain.SampleIndex, energy)
	}

	signalFFT, err := spectrum.NewAnalyzer(256, 44100, spectrum.Hann)
	if err != nil {
		t.Fatal(err)
	}
	bassFFT, err := spectrum.NewAnalyzer(256, 44100, spectrum.Hann)
	if err != nil {
		t.Fatal(err)
	}
	signalFFT.Process(signalRing)
	bassFFT.Process(bassRing)

	return export.Sources{
		Chain:      chain,
		Detector:   detector,
		Tracker:    tracker,
		SignalFFT:  signalFFT,
		BassFFT:    bassFFT,
		SignalRing: signalRing,
		BassRing:   bassRing,
	}
}

type recordingDispatcher struct {
	count atomic.Int64
	err   error
}

func (d *recordingDispatcher) Dispatch(f export.Frame) error {
	d.count.Add(1)
	return d.err
}

func TestLoopDispatchesOnEachTick(t *testing.T) {
	exporter := export.NewExporter(1024, 1024/2+1)
	exporter.Capture(newTestSources(t), 0, false)

	dispatcher := &recordingDispatcher{}
	loop := NewLoop(exporter, dispatcher, 1000) // 1ms ticks for a fast test

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := dispatcher.count.Load(); got < 5 {
		t.Errorf("dispatch count = %d, want at least 5 over 25ms at 1000Hz", got)
	}
}

func TestLoopPropagatesDispatchError(t *testing.T) {
	exporter := export.NewExporter(1024, 1024/2+1)
	wantErr := errors.New("dispatch failed")
	dispatcher := &recordingDispatcher{err: wantErr}
	loop := NewLoop(exporter, dispatcher, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := loop.Run(ctx)
	if !errors.Is(err, wantErr) {
		t.Errorf("Run() error = %v, want %v", err, wantErr)
	}
}

func TestLoopReturnsNilOnContextCancel(t *testing.T) {
	exporter := export.NewExporter(1024, 1024/2+1)
	dispatcher := &recordingDispatcher{}
	loop := NewLoop(exporter, dispatcher, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := loop.Run(ctx); err != nil {
		t.Errorf("Run() on pre-canceled context = %v, want nil", err)
	}
}
