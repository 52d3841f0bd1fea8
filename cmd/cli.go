// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"visualizer/internal/config"
	"visualizer/pkg/build"
)

// ParseArgs loads the base configuration (YAML file + env overrides +
// defaults) and then layers command-line flags on top of it, following
// cobra's persistent-flag-bound-to-a-struct-field pattern.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	cfg, err := config.LoadConfig("")
	if err != nil {
		return nil, err
	}
	cfg.TUIMode = true

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio analysis and visualization engine",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.TUIMode = true
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "list"
			cfg.TUIMode = false
		},
	}
	rootCmd.AddCommand(listCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "version"
			cfg.TUIMode = false
		},
	}
	rootCmd.AddCommand(versionCmd)

	// Audio device configuration.
	rootCmd.PersistentFlags().IntVarP(&cfg.Audio.InputDevice, "device", "d", cfg.Audio.InputDevice,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&cfg.Audio.InputChannels, "channels", "c", cfg.Audio.InputChannels,
		"Number of input channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&cfg.Audio.SampleRate, "sample-rate", "s", cfg.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&cfg.Audio.FramesPerBuffer, "frames-per-buffer", "b", cfg.Audio.FramesPerBuffer,
		"Number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Audio.LowLatency, "low-latency", "l", cfg.Audio.LowLatency,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().IntVar(&cfg.Audio.FFTSize, "fft-size", cfg.Audio.FFTSize,
		"DFT window size for spectrum snapshots, must be a power of two")
	rootCmd.PersistentFlags().StringVar(&cfg.Audio.FFTWindow, "fft-window", cfg.Audio.FFTWindow,
		"Window function applied before the DFT (e.g. Hann, Hamming, Blackman)")

	// Beat/tempo configuration.
	rootCmd.PersistentFlags().Uint32Var(&cfg.BPM.SlowestBPM, "bpm-min", cfg.BPM.SlowestBPM,
		"Slowest BPM the tempo tracker will lock onto")
	rootCmd.PersistentFlags().Uint32Var(&cfg.BPM.FastestBPM, "bpm-max", cfg.BPM.FastestBPM,
		"Fastest BPM the tempo tracker will lock onto")

	// Render pacing.
	rootCmd.PersistentFlags().Float64Var(&cfg.Render.RefreshHz, "refresh-hz", cfg.Render.RefreshHz,
		"Render-loop refresh rate in Hz")

	// PulseAudio passthrough routing.
	rootCmd.PersistentFlags().BoolVar(&cfg.Routing.Enabled, "passthrough", cfg.Routing.Enabled,
		"Route system audio through a virtual sink so the engine can analyze it")
	rootCmd.PersistentFlags().StringVar(&cfg.Routing.SinkName, "passthrough-sink", cfg.Routing.SinkName,
		"Name of the virtual sink created for passthrough routing")

	// Diagnostic transport selection.
	rootCmd.PersistentFlags().BoolVar(&cfg.Transport.UDPEnabled, "diag-udp", cfg.Transport.UDPEnabled,
		"Stream diagnostic records over UDP")
	rootCmd.PersistentFlags().StringVar(&cfg.Transport.UDPTargetAddress, "diag-udp-addr", cfg.Transport.UDPTargetAddress,
		"UDP target address for diagnostic records (host:port)")
	rootCmd.PersistentFlags().BoolVar(&cfg.Transport.WebSocketEnabled, "diag-ws", cfg.Transport.WebSocketEnabled,
		"Serve diagnostic records over WebSocket")
	rootCmd.PersistentFlags().StringVar(&cfg.Transport.WebSocketAddr, "diag-ws-addr", cfg.Transport.WebSocketAddr,
		"Listen address for the diagnostic WebSocket server")

	// Recording configuration.
	rootCmd.PersistentFlags().BoolVarP(&cfg.RecordInputStream, "record", "r", cfg.RecordInputStream,
		"Record audio from the specified input device")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile,
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug configuration.
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose,
		"Show verbose output")

	if cfg.OutputFile == "" {
		cfg.OutputFile = "recording-" + time.Now().UTC().Format("02-01-2006-150405") + "." + cfg.Recording.Format
	}

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if cfg.Verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}
