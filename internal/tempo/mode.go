// SPDX-License-Identifier: MIT
package tempo

// mode tracks the most frequent value seen in a sliding window of uint32
// samples, via an O(1)-per-sample increment/decrement counter array indexed
// by value (offset by minValue). The window holds the last `size` samples;
// pushing a new one evicts the oldest and adjusts both counters.
type mode struct {
	minValue uint32
	values   *ring32
	counter  []uint32
}

func newMode(minValue, maxValue uint32, size int) *mode {
	// The counter array starts at all zeros even though the window is
	// pre-filled with minValue: the first `size` samples "pay down" an
	// implicit debt of zero-weight minValue entries before the histogram
	// reflects real data, matching the window's warm-up behavior.
	return &mode{
		minValue: minValue,
		values:   newRing32(size, minValue),
		counter:  make([]uint32, maxValue-minValue+1),
	}
}

// sample pushes next into the window and returns the window's current mode
// (most frequent value). Ties resolve to the highest-indexed (i.e. fastest
// BPM) value: scanning low-to-high and replacing on >= keeps the
// last-seen maximum, the same tie-break the original's max_by_key gives.
func (m *mode) sample(next uint32) uint32 {
	last := m.values.oldest()
	m.values.push(next)

	lastIndex := last - m.minValue
	if m.counter[lastIndex] > 0 {
		m.counter[lastIndex]--
	}
	nextIndex := next - m.minValue
	m.counter[nextIndex]++

	var bestIndex uint32
	var bestCount uint32
	for i, count := range m.counter {
		if count >= bestCount {
			bestCount = count
			bestIndex = uint32(i)
		}
	}
	return bestIndex + m.minValue
}

// ring32 is a small fixed-size circular buffer of uint32, prefillable with
// a default value and sized exactly (not rounded to a power of two like
// dsp.Ring): the counter array above is sized off the same `size`, so the
// ring's capacity must match it exactly rather than whatever dsp.Ring would
// round it up to.
type ring32 struct {
	data       []uint32
	writeIndex int
}

func newRing32(size int, fill uint32) *ring32 {
	data := make([]uint32, size)
	for i := range data {
		data[i] = fill
	}
	return &ring32{data: data}
}

func (r *ring32) oldest() uint32 {
	return r.data[r.writeIndex]
}

func (r *ring32) push(x uint32) {
	r.data[r.writeIndex] = x
	r.writeIndex++
	if r.writeIndex == len(r.data) {
		r.writeIndex = 0
	}
}
