// SPDX-License-Identifier: MIT
package export

import (
	"log"

	"visualizer/internal/beat"
	"visualizer/internal/dsp"
	"visualizer/internal/spectrum"
	"visualizer/internal/tempo"
)

// Sources bundles the live state an Exporter reads from to build a Frame.
// All fields are read-only from the exporter's perspective; ownership of
// mutation stays with the audio callback that drives the chain/detector/
// tracker each sample.
type Sources struct {
	Chain      *dsp.Chain
	Detector   *beat.Detector
	Tracker    *tempo.Tracker
	SignalFFT  *spectrum.Analyzer
	BassFFT    *spectrum.Analyzer
	SignalRing *dsp.Ring[float64]
	BassRing   *dsp.Ring[float64]
}

// framePoolSize is the number of scratch buffer sets an Exporter rotates
// through across Capture calls. A published Frame's Data slices alias
// whichever pool slot Capture just filled; the pool must stay large enough
// that a slot isn't reused before any reasonably-paced reader has finished
// with the frame it was published in. Render loops read far more often than
// once every framePoolSize audio blocks, so two would likely do, but three
// gives headroom without meaningfully growing memory.
const framePoolSize = 3

// frameScratch holds one slot's pre-allocated buffers: the exported
// []float32 snapshots plus the []float64 scratch CopyInto/GetMagnitudesInto
// need to read out of the ring/spectrum analyzers without allocating.
type frameScratch struct {
	signal       RingSnapshot
	bass         RingSnapshot
	spectrum     SpectrumSnapshot
	bassSpectrum SpectrumSnapshot

	signalRaw []float64
	bassRaw   []float64
	signalMag []float64
	bassMag   []float64
}

// Exporter assembles Frame snapshots from live analysis state and publishes
// them through a Seqlock. One Exporter per render target; multiple
// exporters (GPU handoff, diagnostic telemetry) can share one Sources.
type Exporter struct {
	seq        Seqlock
	realBeats  uint32
	frameIndex uint32

	pool [framePoolSize]frameScratch
}

// NewExporter creates an exporter with its scratch pool pre-allocated to
// ringCapacity samples per ring snapshot and fftBins magnitudes per
// spectrum snapshot, so Capture never allocates on the audio callback
// thread.
func NewExporter(ringCapacity, fftBins int) *Exporter {
	e := &Exporter{}
	for i := range e.pool {
		e.pool[i] = frameScratch{
			signal:       RingSnapshot{Data: make([]float32, ringCapacity)},
			bass:         RingSnapshot{Data: make([]float32, ringCapacity)},
			spectrum:     SpectrumSnapshot{Data: make([]float32, fftBins)},
			bassSpectrum: SpectrumSnapshot{Data: make([]float32, fftBins)},
			signalRaw:    make([]float64, ringCapacity),
			bassRaw:      make([]float64, ringCapacity),
			signalMag:    make([]float64, fftBins),
			bassMag:      make([]float64, fftBins),
		}
	}
	return e
}

// Capture builds a Frame from src at wall-clock time t (seconds, caller-
// supplied so tests and headless runs don't depend on a live clock) and
// publishes it. isBeat reports whether at least one beat was emitted in the
// audio block this frame is captured from.
func (e *Exporter) Capture(src Sources, t float64, isBeat bool) Frame {
	e.frameIndex++
	if isBeat {
		e.realBeats++
	}

	sampleIndex := src.Chain.SampleIndex

	constants := FrameConstants{
		FrameIndex:           e.frameIndex,
		Time:                 float32(t),
		BassEnergy:           float32(src.Chain.Energy.Last),
		CumulativeBassEnergy: float32(src.Chain.Energy.Cumulative),
		IsBeat:               boolToUint32(isBeat),
		RealBeats:            e.realBeats,
		BPMConfidence:        float32(src.Tracker.Confidence()),
		BPMPeriod:            float32(src.Tracker.Period()),
		BeatIndex:            int32(src.Tracker.SampleToBeatIndex(sampleIndex)),
		BeatFract:            float32(src.Tracker.SampleToBeatFract(sampleIndex)),
		BeatProbability:      float32(src.Tracker.BeatProbability(sampleIndex)),
	}

	scratch := &e.pool[e.frameIndex%framePoolSize]
	fillRingSnapshot(&scratch.signal, scratch.signalRaw, src.SignalRing)
	fillRingSnapshot(&scratch.bass, scratch.bassRaw, src.BassRing)
	fillSpectrumSnapshot(&scratch.spectrum, scratch.signalMag, src.SignalFFT)
	fillSpectrumSnapshot(&scratch.bassSpectrum, scratch.bassMag, src.BassFFT)

	frame := Frame{
		Constants:    constants,
		Signal:       scratch.signal,
		Bass:         scratch.bass,
		Spectrum:     scratch.spectrum,
		BassSpectrum: scratch.bassSpectrum,
	}
	e.seq.Publish(frame)
	return frame
}

// Read copies the most recently published frame into dst.
func (e *Exporter) Read(dst *Frame) {
	e.seq.Read(dst)
}

// fillRingSnapshot copies r's backing array into raw (pre-allocated scratch,
// length r.Cap()), then narrows it into dst.Data (pre-allocated, same
// length) in place. No allocation.
func fillRingSnapshot(dst *RingSnapshot, raw []float64, r *dsp.Ring[float64]) {
	r.CopyInto(raw)
	for i, v := range raw {
		dst.Data[i] = float32(v)
	}
	dst.Size = int32(r.Cap())
	dst.WriteIndex = int32(r.WriteIndex())
}

// fillSpectrumSnapshot reads a's magnitudes into mag (pre-allocated
// scratch), then narrows it into dst.Data (pre-allocated, same length) in
// place. No allocation.
func fillSpectrumSnapshot(dst *SpectrumSnapshot, mag []float64, a *spectrum.Analyzer) {
	if err := a.GetMagnitudesInto(mag); err != nil {
		log.Printf("export: %v", err)
		return
	}
	for i, v := range mag {
		dst.Data[i] = float32(v)
	}
	dst.Size = int32(len(mag))
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
