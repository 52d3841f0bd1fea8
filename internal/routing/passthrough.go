// SPDX-License-Identifier: MIT
package routing

import (
	"context"
	"fmt"

	"visualizer/internal/log"
)

// Passthrough is an active virtual-sink redirection: the default sink is
// temporarily pointed at a null sink so the analysis engine can read from
// its monitor, while Restore puts everything back.
type Passthrough struct {
	sink            *VirtualSink
	previousDefault string
	monitorName     string
}

// Establish creates a virtual sink named sinkName, remembers the current
// default sink, and (if redirect is true) makes the virtual sink the new
// default so other applications' audio flows through it.
func Establish(ctx context.Context, sinkName string, redirect bool) (*Passthrough, error) {
	previous, err := DefaultSinkName(ctx)
	if err != nil {
		return nil, err
	}

	sink, err := NewVirtualSink(ctx, sinkName)
	if err != nil {
		return nil, err
	}

	pt := &Passthrough{
		sink:            sink,
		previousDefault: previous,
		monitorName:     sinkName + ".monitor",
	}

	if redirect {
		if err := SetDefaultSink(ctx, sinkName); err != nil {
			_ = sink.Release(ctx)
			return nil, err
		}
	}

	return pt, nil
}

// MonitorSource returns the name of the monitor source the audio engine
// should capture from to hear everything routed through the virtual sink.
func (p *Passthrough) MonitorSource() string {
	return p.monitorName
}

// Restore points the default sink back at whatever it was before Establish
// and unloads the virtual sink's module. It is safe to call more than once
// and safe to call from a signal handler racing a deferred call at normal
// exit — the second call is a no-op because Release is idempotent.
func (p *Passthrough) Restore(ctx context.Context) error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.previousDefault != "" {
		if err := SetDefaultSink(ctx, p.previousDefault); err != nil {
			errs = append(errs, err)
		}
		p.previousDefault = ""
	}
	if err := p.sink.Release(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	log.Errorf("routing: %d error(s) while restoring passthrough", len(errs))
	return fmt.Errorf("routing: restore failed: %v", errs)
}
