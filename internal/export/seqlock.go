// SPDX-License-Identifier: MIT
package export

import "sync/atomic"

// Seqlock publishes a *Frame from a single writer (the audio callback) to
// any number of readers (the render loop, diagnostic exporters) without
// either side blocking. Publish bumps the generation counter to odd before
// writing and back to even after; a reader spins past an odd generation
// and retries if the generation changed during its copy, which together
// detect a torn read. This mirrors the teacher's own int32 atomic-flag
// guard in the recording path, generalized from a boolean to a retry
// counter since frame data, unlike a record-on/off flag, is too large to
// swap atomically.
type Seqlock struct {
	gen   atomic.Uint64
	frame Frame
}

// Publish writes a new frame. Must only be called from the single writer
// goroutine (the audio/export thread); concurrent Publish calls race.
func (s *Seqlock) Publish(f Frame) {
	s.gen.Add(1) // now odd: a write is in flight
	s.frame = f
	s.gen.Add(1) // now even: safe to read
}

// Read copies the latest published frame into dst, retrying if a writer
// was mid-publish. Safe to call from any number of reader goroutines.
func (s *Seqlock) Read(dst *Frame) {
	for {
		g1 := s.gen.Load()
		if g1&1 != 0 {
			continue // writer in flight, spin
		}
		*dst = s.frame
		g2 := s.gen.Load()
		if g1 == g2 {
			return
		}
	}
}

// Generation returns the current sequence counter, for callers that only
// want to detect whether a new frame has been published since their last
// read. The value is odd while a Publish is in flight on the writer
// goroutine.
func (s *Seqlock) Generation() uint64 {
	return s.gen.Load()
}
