// SPDX-License-Identifier: MIT
// Package export defines the frame-snapshot contract handed to the render
// thread: a fixed-layout push-constant block and the buffer-binding shapes
// the compute-shader chain expects, published across goroutines with a
// seqlock so the audio callback never blocks on the renderer.
package export

// FrameConstants is the push-constant block snapshotted once per display
// frame. Field order and types are fixed: this struct's layout is the
// wire contract with the shader chain, not just a convenient Go grouping.
// BeatProbability is appended after the fixed fields rather than spliced
// into the middle, so the first ten fields stay byte-compatible with a
// shader built against the base contract.
type FrameConstants struct {
	FrameIndex           uint32
	Time                 float32
	BassEnergy           float32
	CumulativeBassEnergy float32
	IsBeat               uint32
	RealBeats            uint32
	BPMConfidence        float32
	BPMPeriod            float32
	BeatIndex            int32
	BeatFract            float32

	BeatProbability float32
}

// RingSnapshot mirrors the {size, write_index, data[]} buffer-binding shape
// shared by the signal and bass ring bindings.
type RingSnapshot struct {
	Size       int32
	WriteIndex int32
	Data       []float32
}

// SpectrumSnapshot mirrors the {size, data[]} DFT buffer-binding shape.
// There is no write_index: a spectrum snapshot is a whole-buffer magnitude
// array recomputed every frame, not a rolling ring.
type SpectrumSnapshot struct {
	Size int32
	Data []float32
}

// Frame bundles one display frame's worth of exported state: the
// push-constant block plus the four buffer snapshots (signal ring, bass
// ring, signal spectrum, bass spectrum) the compute-shader chain reads
// alongside it.
type Frame struct {
	Constants    FrameConstants
	Signal       RingSnapshot
	Bass         RingSnapshot
	Spectrum     SpectrumSnapshot
	BassSpectrum SpectrumSnapshot
}
