// SPDX-License-Identifier: MIT
package beat

import "visualizer/internal/dsp"

// ConfidenceProvider supplies the BPM tracker's current confidence, used to
// modulate the detector's noise/beat factors downward as tempo lock
// improves (up to a 0.2 reduction at confidence 1.0). Implemented by
// internal/tempo.Tracker; declared here to avoid an import cycle (the
// tracker in turn depends on beat.Event).
type ConfidenceProvider interface {
	Confidence() float64
}

// Sink receives confirmed beat events in-line, on the same goroutine that
// calls Detector.Step. Implemented by internal/tempo.Tracker.
type Sink interface {
	OnBeat(sampleIndex uint64)
}

// Config bundles the tunables for NewDetector. Window lengths are in energy
// steps (i.e. calls to Detector.Step, which the engine makes once per hop of
// raw samples), not raw PCM samples.
type Config struct {
	ShortWindow  int // ~12 energy steps
	MediumWindow int // ~60 energy steps
	LongWindow   int // ~3600 energy steps
	NoiseFactor  float64
	BeatFactor   float64
	Refractory   int // minimum energy steps between beat emissions
}

// DefaultConfig returns the spec's default detector tunables.
func DefaultConfig() Config {
	return Config{
		ShortWindow:  12,
		MediumWindow: 60,
		LongWindow:   3600,
		NoiseFactor:  1.0,
		BeatFactor:   1.0,
		Refractory:   15,
	}
}

// Detector implements the edge-triggered beat rule of spec.md section 4.5:
// is_high = is_not_noise AND is_eligible AND is_outlier, with a refractory
// window gating emission on the rising edge of is_high.
type Detector struct {
	cfg Config

	short  *dsp.MovingAverage
	medium *dsp.MovingAverage
	long   *dsp.MovingAverage

	isHigh              bool
	samplesSinceLastBeat int

	ring       *Ring
	confidence ConfidenceProvider
	sink       Sink
}

// NewDetector builds a detector. confidence and sink may be nil during
// warm-up/testing; a nil confidence provider disables factor modulation
// (N and B stay at their configured values), a nil sink simply means no
// downstream tracker is notified.
func NewDetector(cfg Config, ringCapacity int, confidence ConfidenceProvider, sink Sink) *Detector {
	return &Detector{
		cfg:        cfg,
		short:      dsp.NewMovingAverage(cfg.ShortWindow),
		medium:     dsp.NewMovingAverage(cfg.MediumWindow),
		long:       dsp.NewMovingAverage(cfg.LongWindow),
		ring:       NewRing(ringCapacity),
		confidence: confidence,
		sink:       sink,
	}
}

// Ring exposes the retained beat history (read-only use by exporters/tests).
func (d *Detector) Ring() *Ring {
	return d.ring
}

// Step feeds one short-term energy value (from dsp.EnergyWindow.Step) at
// absolute PCM sample index sampleIndex, and reports whether a beat was
// emitted on this step.
func (d *Detector) Step(sampleIndex uint64, energy float64) bool {
	shortAvg := d.short.Step(energy)
	mediumAvg := d.medium.Step(energy)
	longAvg := d.long.Step(energy)

	noiseFactor, beatFactor := d.cfg.NoiseFactor, d.cfg.BeatFactor
	if d.confidence != nil {
		reduction := 0.2 * clamp01(d.confidence.Confidence())
		noiseFactor -= reduction
		beatFactor -= reduction
	}

	isNotNoise := energy > longAvg*noiseFactor
	isEligible := shortAvg > mediumAvg*beatFactor
	isOutlier := energy > shortAvg
	isHigh := isNotNoise && isEligible && isOutlier

	wasHigh := d.isHigh
	emit := !wasHigh && isHigh && d.samplesSinceLastBeat > d.cfg.Refractory
	d.isHigh = isHigh

	if emit {
		d.samplesSinceLastBeat = 0
		confidence := 1.0
		if shortAvg > 0 {
			confidence = clamp01(energy / (shortAvg * 2))
		}
		evt := Event{SampleIndex: sampleIndex, Confidence: confidence}
		d.ring.Push(evt)
		if d.sink != nil {
			d.sink.OnBeat(sampleIndex)
		}
	} else {
		d.samplesSinceLastBeat++
	}

	return emit
}

// Averages exposes the three moving averages' current values, for the
// diagnostic stream.
func (d *Detector) Averages() (short, medium, long float64) {
	return d.short.Avg, d.medium.Avg, d.long.Avg
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
