// SPDX-License-Identifier: MIT
/*
Package audio implements a real-time audio capture engine with:
- Lock-free audio capture using PortAudio
- A streaming decay-normalize/band-pass/energy chain feeding beat and tempo
  tracking
- Noise gate with branchless implementation
- WAV recording with atomic state management

Thread Safety:
- Uses atomic operations for state management
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"log"
	"math"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"visualizer/internal/beat"
	"visualizer/internal/config"
	"visualizer/internal/diag"
	"visualizer/internal/dsp"
	"visualizer/internal/export"
	"visualizer/internal/spectrum"
	"visualizer/internal/tempo"
)

// beatHopSamples is the decimation stride between beat-detector/tempo-tracker
// updates: the chain's per-sample decay/filter/energy stages run on every
// frame, but the detector's moving-average windows are sized in "samples of
// energy" at this hop rate, not the raw sample rate. Matches the reference
// analysis loop's every-64th-sample update cadence. Must be a power of two.
const beatHopSamples = 64

// Engine owns the PortAudio input stream and the full per-sample analysis
// chain: decay normalization, band-pass filtering, energy, beat detection,
// and tempo tracking all run inline inside the audio callback.
type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Audio input handling.
	inputBuffer  []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Analysis chain.
	chain      *dsp.Chain
	detector   *beat.Detector
	tracker    *tempo.Tracker
	signalRing *dsp.Ring[float64]
	bassRing   *dsp.Ring[float64]
	signalFFT  *spectrum.Analyzer
	bassFFT    *spectrum.Analyzer
	exporter   *export.Exporter
	lastIsBeat bool

	// Noise gate for signal conditioning.
	gateEnabled   bool
	gateThreshold int32 // Absolute amplitude threshold (0-2147483647)

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine wires up an Engine from configuration: resolves the input
// device, builds the analysis chain, and wires the beat detector to the
// tempo tracker via the beat.Sink/beat.ConfidenceProvider interfaces.
func NewEngine(cfg *config.Config) (engine *Engine, err error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	chain := dsp.NewChain(dsp.ChainConfig{
		SampleRate:          cfg.Audio.SampleRate,
		NormalizerWindowS:   cfg.DSP.NormalizerWindowSeconds,
		BassCenterHz:        cfg.DSP.BassCenterHz,
		BassQ:               cfg.DSP.BassQ,
		EnergyWindowSamples: cfg.DSP.EnergyWindowSamples,
	})

	tracker := tempo.New(cfg.Audio.SampleRate, tempo.Range{
		SlowestBPM: cfg.BPM.SlowestBPM,
		FastestBPM: cfg.BPM.FastestBPM,
	})

	detectorCfg := beat.Config{
		ShortWindow:  12,
		MediumWindow: 60,
		LongWindow:   3600,
		NoiseFactor:  cfg.BPM.NoiseFactor,
		BeatFactor:   cfg.BPM.BeatFactor,
		Refractory:   cfg.BPM.Refractory,
	}
	detector := beat.NewDetector(detectorCfg, 900, tracker, tracker)

	signalRing := dsp.NewRing[float64](cfg.Audio.FFTSize)
	bassRing := dsp.NewRing[float64](cfg.Audio.FFTSize)

	windowFunc, err := spectrum.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		log.Printf("audio: %v, defaulting to Hann", err)
	}
	signalFFT, err := spectrum.NewAnalyzer(cfg.Audio.FFTSize, cfg.Audio.SampleRate, windowFunc)
	if err != nil {
		return nil, err
	}
	bassFFT, err := spectrum.NewAnalyzer(cfg.Audio.FFTSize, cfg.Audio.SampleRate, windowFunc)
	if err != nil {
		return nil, err
	}

	engine = &Engine{
		config:        cfg,
		inputBuffer:   make([]int32, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		inputDevice:   inputDevice,
		chain:         chain,
		detector:      detector,
		tracker:       tracker,
		signalRing:    signalRing,
		bassRing:      bassRing,
		signalFFT:     signalFFT,
		bassFFT:       bassFFT,
		exporter:      export.NewExporter(signalRing.Cap(), signalFFT.FFTSize()/2+1),
		gateEnabled:   cfg.Audio.GateEnabled,
		gateThreshold: int32(cfg.Audio.GateThreshold * float64(math.MaxInt32)),
	}

	if cfg.Audio.LowLatency {
		engine.inputLatency = engine.inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = engine.inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// Exporter returns the engine's frame exporter, for the render loop and
// diagnostic stream to read published frames from.
func (e *Engine) Exporter() *export.Exporter {
	return e.exporter
}

// DiagSources bundles the engine's live analysis state into the shape
// internal/diag.Publisher samples on each tick.
func (e *Engine) DiagSources() diag.Sources {
	return diag.Sources{
		Energy:     func() float64 { return e.chain.Energy.Last },
		Averages:   e.detector,
		Confidence: e.tracker,
		IsBeat:     func() bool { return e.lastIsBeat },
	}
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		return err
	}

	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer)

	// Write to WAV file if recording
	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		for i, sample := range e.inputBuffer {
			e.sampleBuf.Data[i] = int(sample)
		}

		e.sampleBuf.Data = e.sampleBuf.Data[:len(e.inputBuffer)]

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			log.Printf("audio: error writing to WAV file: %v", err)
		}
	}
}

// processBuffer runs all DSP operations over the audio buffer (read only).
// Performance Critical (Hot Path):
// - No allocations beyond what dsp.Chain/beat.Detector already own
// - Branchless noise gate implementation
// - Direct handoff into the dsp.Chain/beat.Detector/tempo.Tracker pipeline
func (e *Engine) processBuffer(buffer []int32) {
	// Determine if the buffer is worth analyzing at all based on the gate.
	shouldAnalyze := true
	if e.gateEnabled {
		var maxAmplitude int32
		for i := range buffer {
			sample := buffer[i]
			mask := sample >> 31
			amplitude := (sample ^ mask) - mask
			diff := amplitude - maxAmplitude
			maxAmplitude += (diff & (diff >> 31)) ^ diff
		}
		shouldAnalyze = maxAmplitude > e.gateThreshold
	}
	if !shouldAnalyze {
		return
	}

	channels := e.config.Audio.InputChannels
	const normFactor = 1.0 / float64(0x80000000)

	blockBeat := false
	for frame := 0; frame < e.config.Audio.FramesPerBuffer; frame++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			idx := frame*channels + ch
			if idx >= len(buffer) {
				break
			}
			sum += float64(buffer[idx]) * normFactor
		}
		mono := sum / float64(channels)

		wideband, bass, energy := e.chain.Step(mono)
		e.signalRing.Append(wideband)
		e.bassRing.Append(bass)

		// Beat/tempo state advances once per hop, not once per raw sample:
		// the detector's window sizes are specified in "samples of energy"
		// at this decimated rate. A beat on any hop marks the whole block.
		if e.chain.SampleIndex&(beatHopSamples-1) == 0 && e.detector.Step(e.chain.SampleIndex, energy) {
			blockBeat = true
		}
	}
	e.lastIsBeat = blockBeat

	if !e.chain.Healthy() {
		log.Printf("audio: DSP chain reported a fault, recovering")
		e.chain.RecoverFromFault()
	}

	e.signalFFT.Process(e.signalRing)
	e.bassFFT.Process(e.bassRing)

	t := float64(e.chain.SampleIndex) / e.config.Audio.SampleRate
	e.exporter.Capture(export.Sources{
		Chain:      e.chain,
		Detector:   e.detector,
		Tracker:    e.tracker,
		SignalFFT:  e.signalFFT,
		BassFFT:    e.bassFFT,
		SignalRing: e.signalRing,
		BassRing:   e.bassRing,
	}, t, e.lastIsBeat)
}
