// SPDX-License-Identifier: MIT
package tempo

import (
	"math"
	"testing"
)

const testSampleRate = 44100.0

func defaultRange() Range {
	return Range{SlowestBPM: 60, FastestBPM: 200}
}

// feedSteadyBPM drives the tracker with n perfectly regular beats at bpm,
// starting at sample 0, and returns the tracker.
func feedSteadyBPM(n int, bpm float64) *Tracker {
	tr := New(testSampleRate, defaultRange())
	period := 60.0 / bpm
	for i := 0; i < n; i++ {
		sampleIndex := uint64(math.Round(float64(i) * period * testSampleRate))
		tr.OnBeat(sampleIndex)
	}
	return tr
}

func TestTrackerLocksOntoSteadyTempo(t *testing.T) {
	for _, bpm := range []float64{120, 128, 140, 150} {
		tr := feedSteadyBPM(32, bpm)
		got := float64(tr.BPM())
		if math.Abs(got-bpm)/bpm > 0.01 {
			t.Errorf("bpm=%v: locked to %v, want within 1%%", bpm, got)
		}
		if conf := tr.Confidence(); conf < 0.8 {
			t.Errorf("bpm=%v: confidence = %v, want >= 0.8 after lock-in", bpm, conf)
		}
	}
}

func TestTrackerRobustToOneSpuriousBeat(t *testing.T) {
	tr := New(testSampleRate, defaultRange())
	const bpm = 120.0
	period := 60.0 / bpm
	beat := 0
	for beat = 0; beat < 16; beat++ {
		sampleIndex := uint64(math.Round(float64(beat) * period * testSampleRate))
		tr.OnBeat(sampleIndex)
	}
	lastSample := uint64(math.Round(float64(beat-1) * period * testSampleRate))

	// One spurious beat, well off the regular grid.
	tr.OnBeat(lastSample + uint64(0.1*testSampleRate))

	for i := 1; i <= 16; i++ {
		sampleIndex := lastSample + uint64(math.Round(float64(i)*period*testSampleRate))
		tr.OnBeat(sampleIndex)
	}

	got := float64(tr.BPM())
	if math.Abs(got-bpm)/bpm > 0.01 {
		t.Errorf("tracker lost lock after one spurious beat: bpm = %v, want ~%v", got, bpm)
	}
}

func TestTrackerRelocksAfterTempoChange(t *testing.T) {
	tr := New(testSampleRate, defaultRange())
	const (
		bpmA = 100.0
		bpmB = 140.0
	)
	periodA := 60.0 / bpmA
	var beat int
	for beat = 0; beat < 20; beat++ {
		tr.OnBeat(uint64(math.Round(float64(beat) * periodA * testSampleRate)))
	}
	lastSample := uint64(math.Round(float64(beat-1) * periodA * testSampleRate))

	periodB := 60.0 / bpmB
	const relockBeats = 32
	for i := 1; i <= relockBeats; i++ {
		sampleIndex := lastSample + uint64(math.Round(float64(i)*periodB*testSampleRate))
		tr.OnBeat(sampleIndex)
	}

	got := float64(tr.BPM())
	if math.Abs(got-bpmB)/bpmB > 0.02 {
		t.Errorf("tracker failed to relock to new tempo: bpm = %v, want ~%v", got, bpmB)
	}
}

func TestTrackerBeatFractIsBoundedUnitInterval(t *testing.T) {
	tr := feedSteadyBPM(16, 120)
	for i := uint64(0); i < 10000; i += 97 {
		f := tr.SampleToBeatFract(i)
		if f < 0 || f >= 1 {
			t.Fatalf("SampleToBeatFract(%d) = %v, want in [0, 1)", i, f)
		}
	}
}

func TestTrackerBeatProbabilityBounded(t *testing.T) {
	tr := feedSteadyBPM(16, 120)
	for i := uint64(0); i < 10000; i += 131 {
		p := tr.BeatProbability(i)
		if p < 0 || p > 1 {
			t.Fatalf("BeatProbability(%d) = %v, want in [0, 1]", i, p)
		}
	}
}

func TestTrackerConfidenceBounded(t *testing.T) {
	tr := feedSteadyBPM(16, 120)
	c := tr.Confidence()
	if c < 0 || c > 1 {
		t.Errorf("Confidence() = %v, want in [0, 1]", c)
	}
}

func TestTrackerBeatIndexCounts(t *testing.T) {
	tr := New(testSampleRate, defaultRange())
	for i := uint64(0); i < 5; i++ {
		tr.OnBeat(i * 22050)
	}
	if tr.BeatIndex() != 5 {
		t.Errorf("BeatIndex() = %d, want 5", tr.BeatIndex())
	}
}
