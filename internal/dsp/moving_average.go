// SPDX-License-Identifier: MIT
package dsp

// MovingAverage is a windowed mean over the last N samples, O(1) per sample
// via a running sum, periodically re-summed from scratch to bound
// floating-point drift. Grounded on original_source/src/filters/
// statistical_summary.rs's running-sum average (the sd/energy fields there
// are not needed by the beat detector's eligibility rule, so this type
// keeps only the mean).
type MovingAverage struct {
	ring       []float64
	writeIndex int
	sinceResum int
	sum        float64
	Avg        float64
}

// NewMovingAverage builds an average over the given window length in
// samples. A window of 1 degenerates to passthrough.
func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 1
	}
	return &MovingAverage{ring: make([]float64, window)}
}

// Step appends x and returns the updated mean.
func (m *MovingAverage) Step(x float64) float64 {
	old := m.ring[m.writeIndex]
	m.ring[m.writeIndex] = x
	m.writeIndex = (m.writeIndex + 1) % len(m.ring)
	m.sum += x - old

	m.sinceResum++
	if m.sinceResum >= len(m.ring) {
		var sum float64
		for _, v := range m.ring {
			sum += v
		}
		m.sum = sum
		m.sinceResum = 0
	}

	m.Avg = m.sum / float64(len(m.ring))
	return m.Avg
}

// Reset zeros the average (NaN-recovery path).
func (m *MovingAverage) Reset() {
	for i := range m.ring {
		m.ring[i] = 0
	}
	m.sum = 0
	m.sinceResum = 0
	m.Avg = 0
}
