// SPDX-License-Identifier: MIT
// Package tempo tracks BPM and beat phase from a stream of beat events: a
// mode-of-recent-BPM-estimates histogram picks the candidate period, a
// least-squares fit scores how well a phase/period pair explains recent
// on-phase beats, and gradient descent nudges the phase toward that fit
// after every beat.
package tempo

import (
	"math"

	"visualizer/internal/dsp"
)

const (
	beatsHistorySize = 15
	deltaHistorySize = 10
	bpmHistorySize   = 32
)

// Range bounds which beat-to-beat deltas are accepted as tempo evidence.
// Deltas outside [60/fastBPM, 60/slowBPM] are recorded as beats but ignored
// for period/phase estimation.
type Range struct {
	SlowestBPM uint32
	FastestBPM uint32
}

// bpmPeriod is a BPM estimate paired with its period in seconds, mirroring
// how the original tracker avoids recomputing 60/bpm on every access.
type bpmPeriod struct {
	value  uint32
	period float64
}

func newBPMPeriod(bpm uint32) bpmPeriod {
	return bpmPeriod{value: bpm, period: 60.0 / float64(bpm)}
}

// Tracker estimates BPM and beat phase from a live stream of beat sample
// indices. Not safe for concurrent use; it is driven exclusively from the
// beat detector's Step call, on the audio callback's goroutine.
type Tracker struct {
	sampleRate float64
	slow       bpmPeriod
	fast       bpmPeriod

	beatIndex    uint32
	lastBeats    *dsp.Ring[uint64]
	onPhaseBeats *dsp.Ring[uint64]
	lastDelta    *dsp.Ring[float64]

	lastDeltaSum float64
	bpmMode      *mode

	bpmCandidate bpmPeriod
	bpm          bpmPeriod

	phaseOrigin uint64
	phase       float64

	phaseError   float64
	phaseErrorDt float64

	// periodErrorAvg is a rolling mean of the last beatsHistorySize
	// |period - observed_interval| residuals, the confidence metric's basis.
	periodErrorAvg *dsp.MovingAverage
}

// New creates a tracker. Until enough beats have arrived to form a real
// histogram mode, the estimate is the midpoint of the configured range.
func New(sampleRate float64, r Range) *Tracker {
	roughBPM := (r.SlowestBPM + r.FastestBPM) / 2

	lastBeats := dsp.NewRing[uint64](beatsHistorySize)
	onPhaseBeats := dsp.NewRing[uint64](beatsHistorySize)
	lastDelta := dsp.NewRing[float64](deltaHistorySize)
	for i := 0; i < lastDelta.Cap(); i++ {
		lastDelta.Append(0.5)
	}

	return &Tracker{
		sampleRate: sampleRate,
		slow:       newBPMPeriod(r.SlowestBPM),
		fast:       newBPMPeriod(r.FastestBPM),

		lastBeats:    lastBeats,
		onPhaseBeats: onPhaseBeats,
		lastDelta:    lastDelta,

		lastDeltaSum: 0.5 * float64(lastDelta.Cap()),
		bpmMode:      newMode(r.SlowestBPM, r.FastestBPM, bpmHistorySize),

		bpmCandidate: newBPMPeriod(roughBPM),
		bpm:          newBPMPeriod(roughBPM),

		periodErrorAvg: dsp.NewMovingAverage(beatsHistorySize),
	}
}

func (t *Tracker) deltaFitsRange(deltaS float64) bool {
	return t.fast.period < deltaS && deltaS < t.slow.period
}

func (t *Tracker) sampleToPhase(sampleIndex uint64) float64 {
	return float64(sampleIndex-t.phaseOrigin)/t.sampleRate - t.phase
}

// SampleToBeatFract returns the fractional position within the current
// beat period for an absolute sample index, in [0, 1).
func (t *Tracker) SampleToBeatFract(sampleIndex uint64) float64 {
	v := t.sampleToPhase(sampleIndex) / t.bpm.period
	return v - math.Floor(v)
}

// SampleToBeatIndex returns the (possibly negative, for samples before the
// phase origin) whole-beat count at an absolute sample index.
func (t *Tracker) SampleToBeatIndex(sampleIndex uint64) int64 {
	return int64(math.Floor(t.sampleToPhase(sampleIndex) / t.bpm.period))
}

func (t *Tracker) estimateBPM() {
	bpm := uint32(math.Round(60.0 * float64(t.lastDelta.Cap()) / t.lastDeltaSum))
	bpm = clampBPM(bpm, t.slow.value, t.fast.value)
	t.bpmCandidate = newBPMPeriod(t.bpmMode.sample(bpm))
}

func clampBPM(bpm, slowest, fastest uint32) uint32 {
	if bpm < slowest {
		return slowest
	}
	if bpm > fastest {
		return fastest
	}
	return bpm
}

func (t *Tracker) checkBPMCandidate() {
	if t.bpmCandidate.value == t.bpm.value {
		return
	}

	errorNow := t.errorPhasePeriod(t.phase, t.bpm.period)

	bestPhase := 0.0
	bestError := math.Inf(1)
	for step := 0; step < 10; step++ {
		candidatePhase := float64(step) * t.bpmCandidate.period / 10.0
		e := t.errorPhasePeriod(candidatePhase, t.bpmCandidate.period)
		if e < bestError {
			bestError = e
			bestPhase = candidatePhase
		}
	}

	if bestError < errorNow {
		t.bpm = t.bpmCandidate
		t.phase = bestPhase
	}
}

// errorPhasePeriod scores a (phase, period) hypothesis against the retained
// on-phase beats: each beat's offset from the nearest predicted beat time,
// as a fraction of the period, contributes a squared residual. A perfect
// fit scores 0.
func (t *Tracker) errorPhasePeriod(phase, period float64) float64 {
	var sum float64
	for i := 0; i < t.onPhaseBeats.Cap(); i++ {
		index := t.onPhaseBeats.At(i)
		time := float64(index-t.phaseOrigin) / t.sampleRate
		offset := (time - phase) / period
		residual := 2.0 * (offset - math.Round(offset))
		sum += residual * residual
	}
	return sum
}

// OnBeat updates the tracker with a newly confirmed beat at sampleIndex.
// Implements beat.Sink, so a Detector can be wired directly to a Tracker.
func (t *Tracker) OnBeat(sampleIndex uint64) {
	t.beatIndex++

	// Re-base phaseOrigin to the oldest retained on-phase beat, so that
	// later sampleToPhase computations subtract two numbers of similar
	// magnitude instead of accumulating float error against an origin of 0
	// over a multi-hour session.
	oldestBeat := t.onPhaseBeats.Oldest()
	deltaS := float64(oldestBeat-t.phaseOrigin) / t.sampleRate
	numPeriods := math.Floor(deltaS / t.bpm.period)
	t.phaseOrigin += uint64(numPeriods * t.bpm.period * t.sampleRate)

	deltaS = float64(sampleIndex-t.lastBeats.Prev()) / t.sampleRate
	t.periodErrorAvg.Step(math.Abs(t.bpm.period - deltaS))
	t.lastBeats.Append(sampleIndex)
	if t.deltaFitsRange(deltaS) {
		t.onPhaseBeats.Append(sampleIndex)
		t.lastDeltaSum += deltaS - t.lastDelta.Oldest()
		t.lastDelta.Append(deltaS)
	}
	t.estimateBPM()

	if t.beatIndex&0b11 == 0 {
		t.checkBPMCandidate()
	}

	// Gradient-descent phase refinement: nudge phase along the numerical
	// derivative of the fit error, clamped to 5% of the period per beat so
	// a single spurious beat cannot throw phase lock.
	deltaT := 0.001 * t.bpm.period
	errorNow := t.errorPhasePeriod(t.phase, t.bpm.period)
	errorOffset := t.errorPhasePeriod(t.phase+deltaT, t.bpm.period)
	errorDt := (errorOffset - errorNow) / deltaT

	fivePercent := 0.05 * t.bpm.period
	step := clampFloat(0.0005*errorDt, -fivePercent, fivePercent)
	t.phase -= step

	t.phaseError = errorNow
	t.phaseErrorDt = errorDt
}

func clampFloat(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Confidence reports tempo lock confidence in [0, 1], derived from
// periodErrorAvg: a large recent average |period - observed_interval|
// residual (in seconds) pulls confidence toward 0, and a sub-second
// residual saturates it at 1. Implements beat.ConfidenceProvider.
func (t *Tracker) Confidence() float64 {
	return 1.0 / math.Max(1.0, t.periodErrorAvg.Avg)
}

// BeatProbability blends tempo confidence with proximity to the nearest
// predicted beat time, for a continuous "how close to a beat are we right
// now" signal independent of the detector's binary IsBeat.
func (t *Tracker) BeatProbability(sampleIndex uint64) float64 {
	offset := t.SampleToBeatFract(sampleIndex)
	return t.Confidence() * 2.0 * math.Abs(offset-0.5)
}

// BPM returns the current locked BPM estimate.
func (t *Tracker) BPM() uint32 {
	return t.bpm.value
}

// Period returns the current locked beat period in seconds.
func (t *Tracker) Period() float64 {
	return t.bpm.period
}

// PhaseError returns the most recent phase/period fit residual.
func (t *Tracker) PhaseError() float64 {
	return t.phaseError
}

// BeatIndex returns the total number of beats observed so far.
func (t *Tracker) BeatIndex() uint32 {
	return t.beatIndex
}
