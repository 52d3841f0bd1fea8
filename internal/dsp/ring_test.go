// SPDX-License-Identifier: MIT
package dsp

import "testing"

func TestRingAtMostRecent(t *testing.T) {
	r := NewRing[float64](8)
	for i := 0; i < 20; i++ {
		r.Append(float64(i))
	}
	if got := r.At(0); got != 19 {
		t.Errorf("At(0) = %v, want 19", got)
	}
}

func TestRingAtKthMostRecent(t *testing.T) {
	r := NewRing[int](8)
	for i := 0; i < 8; i++ {
		r.Append(i)
	}
	tests := []struct {
		offset int
		want   int
	}{
		{0, 7},
		{1, 6},
		{7, 0},
	}
	for _, tt := range tests {
		if got := r.At(tt.offset); got != tt.want {
			t.Errorf("At(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}

func TestRingRetainsCapacitySamples(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 100; i++ {
		r.Append(i)
	}
	for offset := 0; offset < r.Cap(); offset++ {
		want := 99 - offset
		if got := r.At(offset); got != want {
			t.Errorf("At(%d) = %d, want %d", offset, got, want)
		}
	}
}

func TestRingCapacityRoundsToPowerOfTwo(t *testing.T) {
	r := NewRing[float64](10)
	if r.Cap() != 16 {
		t.Errorf("Cap() = %d, want 16", r.Cap())
	}
}

func TestRingZeroFilledBeforeFirstSample(t *testing.T) {
	r := NewRing[float64](8)
	r.Append(1.0)
	if got := r.At(5); got != 0 {
		t.Errorf("At(5) = %v, want 0 (silence before first sample)", got)
	}
}

func TestRingLatestMonotonic(t *testing.T) {
	r := NewRing[float64](4)
	for i := 0; i < 10; i++ {
		r.Append(float64(i))
		if r.Latest() != uint64(i+1) {
			t.Errorf("Latest() = %d, want %d", r.Latest(), i+1)
		}
	}
}

func TestRingWriteIndexWraps(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 9; i++ {
		r.Append(i)
	}
	if got := r.WriteIndex(); got != 1 {
		t.Errorf("WriteIndex() = %d, want 1", got)
	}
}

func TestRingPrevEqualsAtZero(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 6; i++ {
		r.Append(i)
	}
	if r.Prev() != r.At(0) {
		t.Errorf("Prev() = %d, At(0) = %d, want equal", r.Prev(), r.At(0))
	}
}

func TestRingOldestIsNextOverwritten(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 10; i++ {
		r.Append(i)
	}
	oldest := r.Oldest()
	if got := r.At(r.Cap() - 1); got != oldest {
		t.Errorf("Oldest() = %d, want the oldest retained sample At(Cap()-1) = %d", oldest, got)
	}
	slot := r.WriteIndex()
	r.Append(999)
	if got := r.data[slot]; got != 999 {
		t.Errorf("slot Oldest() read from holds %d after Append, want it overwritten with 999", got)
	}
}

func TestRingOldestBeforeFill(t *testing.T) {
	r := NewRing[int](4)
	if got := r.Oldest(); got != 0 {
		t.Errorf("Oldest() on empty ring = %d, want 0", got)
	}
}
