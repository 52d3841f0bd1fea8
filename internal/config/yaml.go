// SPDX-License-Identifier: MIT
// Package config loads and validates runtime configuration from a YAML
// file, environment variable overrides, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// MinDeviceID represents the system default input device.
const MinDeviceID = -1

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (verbose logging, potentially other debug features).
	LogLevel  string          `yaml:"log_level"`         // Logging level (e.g., "debug", "info", "warn", "error").
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the engine (e.g., "list", "version").
	Audio     AudioConfig     `yaml:"audio"`             // Audio processing settings.
	DSP       DSPConfig       `yaml:"dsp"`               // Signal-conditioning chain settings.
	BPM       BPMConfig       `yaml:"bpm"`               // BPM tracker range and detector tuning.
	Render    RenderConfig    `yaml:"render"`            // Render-loop pacing.
	Routing   RoutingConfig   `yaml:"routing"`           // PulseAudio passthrough routing.
	Recording RecordingConfig `yaml:"recording"`         // Audio recording settings.
	Transport TransportConfig `yaml:"transport"`         // Data transport settings (e.g., UDP).

	// Process-lifetime flags set by the CLI, never persisted to YAML.
	TUIMode           bool   `yaml:"-"` // Run the live monitor instead of exiting after a one-off command.
	RecordInputStream bool   `yaml:"-"` // Start recording to OutputFile as soon as the engine starts.
	OutputFile        string `yaml:"-"` // WAV file path for RecordInputStream.
	Verbose           bool   `yaml:"-"` // CLI shorthand for Debug/LogLevel=debug.
}

// AudioConfig holds settings related to audio input/output and processing.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for audio output (-1 for default, currently unused).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Number of audio frames per processing buffer (affects latency and FFT resolution).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels to capture (e.g., 1 for mono, 2 for stereo).
	OutputChannels  int     `yaml:"output_channels"`   // Number of output channels (currently unused).
	FFTWindow       string  `yaml:"fft_window"`        // Name of the window function for FFT analysis (e.g., "Hann", "Hamming").
	FFTSize         int     `yaml:"fft_size"`          // Number of points for spectrum analysis (power of 2).
	GateEnabled     bool    `yaml:"gate_enabled"`      // Enable the branchless noise gate ahead of the DSP chain.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Noise gate threshold, 0.0 (always open) to 1.0 (always closed).
}

// DSPConfig holds settings for the decay-normalization/band-pass/energy
// chain that feeds the beat detector.
type DSPConfig struct {
	NormalizerWindowSeconds float64 `yaml:"normalizer_window_seconds"` // Decay normalizer time constant.
	BassCenterHz            float64 `yaml:"bass_center_hz"`            // Band-pass filter center frequency.
	BassQ                   float64 `yaml:"bass_q"`                    // Band-pass filter quality factor.
	EnergyWindowSamples     int     `yaml:"energy_window_samples"`     // Short-term energy window length.
}

// BPMConfig bounds the tempo tracker's accepted BPM range and the beat
// detector's noise/eligibility/refractory tuning.
type BPMConfig struct {
	SlowestBPM  uint32  `yaml:"slowest_bpm"`
	FastestBPM  uint32  `yaml:"fastest_bpm"`
	NoiseFactor float64 `yaml:"noise_factor"`
	BeatFactor  float64 `yaml:"beat_factor"`
	Refractory  int     `yaml:"refractory_steps"`
}

// RenderConfig paces the simulated vsync loop.
type RenderConfig struct {
	RefreshHz float64 `yaml:"refresh_hz"`
}

// RoutingConfig controls optional PulseAudio virtual-sink passthrough.
type RoutingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	SinkName    string `yaml:"sink_name"`
	Passthrough bool   `yaml:"passthrough"`
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled     bool    `yaml:"enabled"`              // Enable audio recording to file.
	OutputDir   string  `yaml:"output_dir"`           // Directory to save recorded audio files.
	Format      string  `yaml:"format"`               // File format for recordings (e.g., "wav").
	BitDepth    int     `yaml:"bit_depth"`            // Bit depth for recorded audio (e.g., 16, 24).
	MaxDuration int     `yaml:"max_duration_seconds"` // Maximum duration of a single recording file in seconds (0 for unlimited).
	SilenceTh   float64 `yaml:"silence_threshold"`    // Silence threshold for potential silence detection features (currently unused).
}

// TransportConfig holds settings related to sending processed data over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending diagnostic data over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Enable serving diagnostic data over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address for the WebSocket diagnostic server.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults.  After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			OutputDevice:    -1,
			SampleRate:      44100,
			FramesPerBuffer: 1024,
			LowLatency:      false,
			InputChannels:   2,
			OutputChannels:  2,
			FFTWindow:       "Hann",
			FFTSize:         1024,
			GateEnabled:     true,
			GateThreshold:   0.001,
		},
		DSP: DSPConfig{
			NormalizerWindowSeconds: 1.0,
			BassCenterHz:            100,
			BassQ:                   1.0,
			EnergyWindowSamples:     1102, // ~25ms at 44.1kHz
		},
		BPM: BPMConfig{
			SlowestBPM:  60,
			FastestBPM:  200,
			NoiseFactor: 1.0,
			BeatFactor:  1.0,
			Refractory:  15,
		},
		Render: RenderConfig{
			RefreshHz: 60,
		},
		Routing: RoutingConfig{
			Enabled:     false,
			SinkName:    "visualizer_passthrough",
			Passthrough: true,
		},
		Recording: RecordingConfig{
			Enabled:     false,
			OutputDir:   "./recordings",
			Format:      "wav",
			BitDepth:    16,
			MaxDuration: 0, // 0 for unlimited.
			SilenceTh:   0.01,
		},
		Transport: TransportConfig{
			UDPEnabled:       false, // Default UDP to false.
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // Default ~30Hz.
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
		},
	}

	if path == "" {
		// Define potential locations for the config file.
		candidates := []string{
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive")
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive")
	}
	if c.BPM.SlowestBPM >= c.BPM.FastestBPM {
		return fmt.Errorf("bpm.slowest_bpm (%d) must be less than bpm.fastest_bpm (%d)", c.BPM.SlowestBPM, c.BPM.FastestBPM)
	}
	if c.Render.RefreshHz <= 0 {
		return fmt.Errorf("render.refresh_hz must be positive")
	}
	return nil
}

func (cfg *Config) applyEnvOverrides() {
	// ENV_{...}
	// These are general overrides.

	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			fmt.Printf("configuration: Overriding debug from env: %v", bVal)
		}
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			fmt.Printf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		fmt.Printf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			fmt.Printf("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}

	// ENV_ROUTING_{...}

	if val, ok := os.LookupEnv("ENV_ROUTING_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Routing.Enabled = bVal
			fmt.Printf("configuration: Overriding routing.enabled from env: %v", bVal)
		}
	}
}
