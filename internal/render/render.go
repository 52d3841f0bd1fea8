// SPDX-License-Identifier: MIT
// Package render drives the vsync-paced loop that turns the latest
// exported frame into a compute-shader dispatch. The shader programs
// themselves, and the swapchain/presentation machinery around them, are
// external collaborators: this package only owns the loop and the Go-side
// handoff contract a real backend would implement against.
package render

import (
	"context"
	"time"

	"visualizer/internal/export"
)

// ShaderDispatcher submits one frame's buffers and push constants to the
// compute-shader chain and presents the result. No implementation lives in
// this module: a real backend (Vulkan, WebGPU, whatever the presentation
// layer ends up being) would satisfy this interface. Tests use a recording
// fake.
type ShaderDispatcher interface {
	Dispatch(f export.Frame) error
}

// Loop paces a render callback to a fixed vsync interval and feeds it the
// latest published frame on every tick. It owns no GPU state; it is purely
// the scheduling discipline spec.md assigns to the render thread.
type Loop struct {
	exporter   *export.Exporter
	dispatcher ShaderDispatcher
	interval   time.Duration
}

// NewLoop creates a render loop targeting the given refresh rate.
func NewLoop(exporter *export.Exporter, dispatcher ShaderDispatcher, refreshHz float64) *Loop {
	return &Loop{
		exporter:   exporter,
		dispatcher: dispatcher,
		interval:   time.Duration(float64(time.Second) / refreshHz),
	}
}

// Run blocks, dispatching one frame per vsync tick, until ctx is canceled.
// It returns the first dispatch error encountered, if any.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	var frame export.Frame
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.exporter.Read(&frame)
			if err := l.dispatcher.Dispatch(frame); err != nil {
				return err
			}
		}
	}
}
