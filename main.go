package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"visualizer/cmd"
	"visualizer/internal/audio"
	"visualizer/internal/diag"
	"visualizer/internal/export"
	applog "visualizer/internal/log"
	"visualizer/internal/render"
	"visualizer/internal/routing"
	"visualizer/internal/transport"
	"visualizer/internal/transport/udp"
	"visualizer/internal/tui"
	"visualizer/pkg/build"
)

// shutdownTimeout bounds how long we wait for PulseAudio passthrough
// teardown on the way out; pactl calls during shutdown must not hang the
// process indefinitely if the daemon is unresponsive.
const shutdownTimeout = 3 * time.Second

// noopDispatcher satisfies render.ShaderDispatcher when no real compute
// backend is wired in. It exists so the render loop can still be exercised
// end to end (pacing, frame reads) without a GPU.
type noopDispatcher struct{}

func (noopDispatcher) Dispatch(f export.Frame) error { return nil }

// byteSender is satisfied by *udp.UDPSender. Declaring it locally (rather
// than passing a possibly-nil *udp.UDPSender straight into diag.NewPublisher's
// interface parameter) avoids handing the publisher a non-nil interface
// wrapping a nil pointer when UDP diagnostics are disabled.
type byteSender interface {
	Send(data []byte) error
}

// main is the entry point for the audio visualization engine. The program
// flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Initialize PortAudio
//   - Parse command line arguments
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the audio engine's input stream and analysis chain
//   - Optionally establish PulseAudio passthrough routing
//   - Start the render loop and diagnostic publisher
//   - Run the TUI, if requested
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording if active
//   - Tear down passthrough routing and transports
//   - Clean up audio engine resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	// Limit OS threads to optimize for real-time audio processing:
	// one thread dedicated to the audio engine (time-critical), one for
	// everything else.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatal(err)
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	switch cfg.Command {
	case "list":
		if err := tui.StartDeviceListUI(); err != nil {
			log.Fatal(err)
		}
		return
	case "version":
		buildInfo := build.GetBuildFlags()
		fmt.Printf("%s %s (commit %s, built %s)\n", buildInfo.Name, buildInfo.Version, buildInfo.Commit, buildInfo.Time)
		return
	}

	if !cfg.TUIMode {
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var passthrough *routing.Passthrough
	if cfg.Routing.Enabled {
		passthrough, err = routing.Establish(ctx, cfg.Routing.SinkName, cfg.Routing.Passthrough)
		if err != nil {
			log.Fatalf("routing: failed to establish passthrough: %v", err)
		}
		applog.Infof("routing: passthrough established on sink %q (monitor %s)", cfg.Routing.SinkName, passthrough.MonitorSource())
	}

	engine, err := audio.NewEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if err := engine.StartInputStream(); err != nil {
		log.Fatal(err)
	}

	if cfg.RecordInputStream {
		if err := engine.StartRecording(cfg.OutputFile); err != nil {
			log.Fatal(err)
		}
	}

	renderLoop := render.NewLoop(engine.Exporter(), noopDispatcher{}, cfg.Render.RefreshHz)
	go func() {
		if err := renderLoop.Run(ctx); err != nil {
			applog.Errorf("render: loop exited with error: %v", err)
		}
	}()

	var publisher *diag.Publisher
	if cfg.Transport.UDPEnabled || cfg.Transport.WebSocketEnabled {
		var udpSender byteSender
		if cfg.Transport.UDPEnabled {
			sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
			if err != nil {
				log.Fatalf("diag: failed to create UDP sender: %v", err)
			}
			udpSender = sender
		}

		var ws transport.Transport
		if cfg.Transport.WebSocketEnabled {
			ws = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		}

		publisher = diag.NewPublisher(engine.DiagSources(), cfg.Transport.UDPSendInterval, udpSender, ws)
		publisher.Start()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// cfg.TUIMode is always true past this point: a "list"/"version"
	// one-off command already returned above, and the non-TUI early exit
	// already handled the only other case.
	go func() {
		if err := tui.StartMonitorUI(engine.Exporter()); err != nil {
			applog.Errorf("tui: monitor exited with error: %v", err)
		}
		done <- os.Interrupt
	}()

	<-done

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	cancel()

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			applog.Errorf("diag: error closing publisher: %v", err)
		}
	}

	if cfg.RecordInputStream {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("audio: error stopping recording: %v", err)
		}
		fmt.Printf("\nRecording saved to: %s\n", cfg.OutputFile)
	}

	if passthrough != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := passthrough.Restore(shutdownCtx); err != nil {
			applog.Errorf("routing: error restoring passthrough: %v", err)
		}
		shutdownCancel()
	}

	if err := engine.StopInputStream(); err != nil {
		applog.Errorf("audio: error stopping input stream: %v", err)
	}
}
