// SPDX-License-Identifier: MIT
// Package beat implements onset detection over the bass short-term energy
// signal: three moving averages define noise, eligibility, and outlier
// conditions, and a refractory window gates emission.
package beat

// Event is a single detected onset: the absolute monotonic input sample
// index at which it was declared, and a confidence in (0, 1].
type Event struct {
	SampleIndex uint64
	Confidence  float64
}

// Ring holds a bounded history of recent Events, used by the BPM tracker
// and capped at roughly 20s of history at the detector's check rate.
type Ring struct {
	events []Event
	head   int
	count  int
}

// NewRing creates a ring with room for capacity events.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{events: make([]Event, capacity)}
}

// Push appends e as the newest event, evicting the oldest if full.
func (r *Ring) Push(e Event) {
	r.events[r.head] = e
	r.head = (r.head + 1) % len(r.events)
	if r.count < len(r.events) {
		r.count++
	}
}

// Len reports how many events are currently retained.
func (r *Ring) Len() int {
	return r.count
}

// At returns the event offset positions before the most recent (0 = most
// recent). offset must be in [0, Len()).
func (r *Ring) At(offset int) Event {
	idx := (r.head - 1 - offset + len(r.events)) % len(r.events)
	return r.events[idx]
}

// Oldest returns the oldest retained event. Len() must be > 0.
func (r *Ring) Oldest() Event {
	return r.At(r.count - 1)
}

// Each calls fn for every retained event, oldest first.
func (r *Ring) Each(fn func(Event)) {
	for i := r.count - 1; i >= 0; i-- {
		fn(r.At(i))
	}
}
