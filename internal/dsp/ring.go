// SPDX-License-Identifier: MIT
// Package dsp implements the streaming signal-conditioning chain: ring
// buffers, decay normalization, biquad filtering, short-term energy, and
// the moving averages the beat detector and BPM tracker build on. Every
// type here is meant to live on the audio callback's hot path: no
// allocation after construction, no locks, no I/O.
package dsp

import "visualizer/pkg/bitint"

// Ring is a fixed-capacity circular buffer of recent samples. Capacity is
// rounded up to the next power of two, and indexing relies on that: slots
// are addressed by masking with Cap()-1.
//
// The write index is monotonic and never wraps in the API surface: Latest
// returns the absolute count of items ever appended. At(offset) reads
// "offset samples ago", where 0 is the most recently appended item.
type Ring[T any] struct {
	data    []T
	cap     int
	written uint64
}

// NewRing creates a zero-filled ring of the given logical capacity, rounded
// up to the next power of two.
func NewRing[T any](capacity int) *Ring[T] {
	cap := bitint.NextPowerOfTwo(capacity)
	return &Ring[T]{
		data: make([]T, cap),
		cap:  cap,
	}
}

// Cap returns the buffer's actual (power-of-two) capacity.
func (r *Ring[T]) Cap() int {
	return r.cap
}

// Append writes x as the newest sample.
func (r *Ring[T]) Append(x T) {
	r.data[int(r.written)&(r.cap-1)] = x
	r.written++
}

// At returns the sample offset positions ago; offset 0 is the most recent.
// offset must be in [0, Cap()). Out-of-range offsets are a programming
// fault and panic.
func (r *Ring[T]) At(offset int) T {
	if offset < 0 || offset >= r.cap {
		panic("dsp: Ring.At offset out of range")
	}
	idx := (int(r.written) - 1 - offset) & (r.cap - 1)
	return r.data[idx]
}

// Latest returns the absolute number of items ever appended (the write
// index, monotonic, never decreasing).
func (r *Ring[T]) Latest() uint64 {
	return r.written
}

// Prev returns the most recently appended item. Equivalent to At(0), kept
// as a named alias for call sites that read more naturally as "the previous
// value" (e.g. computing a delta against the last beat).
func (r *Ring[T]) Prev() T {
	return r.At(0)
}

// Oldest returns the item that the next Append will overwrite. Well-defined
// even before the ring has been filled, since unwritten slots hold T's zero
// value.
func (r *Ring[T]) Oldest() T {
	return r.data[int(r.written)&(r.cap-1)]
}

// WriteIndex returns the index in the backing array the next Append will
// write to. Exposed for snapshot export, where consumers need the same
// {size, write_index, data[]} shape the original ring buffer used.
func (r *Ring[T]) WriteIndex() int {
	return int(r.written) & (r.cap - 1)
}

// CopyInto copies the full backing array, in storage order, into dst. dst
// must have length Cap(). Pairs with WriteIndex() to let a consumer
// reconstruct logical order without forcing an allocation inside Ring.
func (r *Ring[T]) CopyInto(dst []T) {
	copy(dst, r.data)
}
