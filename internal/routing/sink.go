// SPDX-License-Identifier: MIT
// Package routing manages PulseAudio virtual-sink passthrough: creating a
// null sink, redirecting the system default to it, and restoring the prior
// state on shutdown.
package routing

import (
	"context"
	"fmt"
	"strings"

	"visualizer/internal/log"
)

// execCommand is a seam over os/exec so tests never shell out to a real
// pactl binary.
var execCommand = runCommand

// VirtualSink is a PulseAudio null-sink created for the lifetime of a
// passthrough session. It has no Go finalizer equivalent to Rust's Drop, so
// callers must explicitly call Release (directly, via defer, and from a
// signal handler) to guarantee the module is unloaded.
type VirtualSink struct {
	Name     string
	moduleID string
}

// NewVirtualSink loads a module-null-sink named name.
func NewVirtualSink(ctx context.Context, name string) (*VirtualSink, error) {
	log.Debugf("routing: creating virtual sink %q", name)

	sinkProps := fmt.Sprintf(`sink_name="%s" sink_properties=device.description="%s"`, name, name)
	out, err := execCommand(ctx, "pactl", "load-module", "module-null-sink", sinkProps)
	if err != nil {
		return nil, fmt.Errorf("routing: failed to create virtual sink %q: %w", name, err)
	}

	sink := &VirtualSink{Name: name, moduleID: strings.TrimSpace(out)}
	log.Debugf("routing: virtual sink %s created", sink)
	return sink, nil
}

// Release unloads the sink's module. Safe to call more than once; only the
// first call does anything.
func (s *VirtualSink) Release(ctx context.Context) error {
	if s == nil || s.moduleID == "" {
		return nil
	}
	log.Debugf("routing: destroying virtual sink %s", s)
	_, err := execCommand(ctx, "pactl", "unload-module", s.moduleID)
	s.moduleID = ""
	if err != nil {
		return fmt.Errorf("routing: failed to unload virtual sink %s: %w", s, err)
	}
	return nil
}

func (s *VirtualSink) String() string {
	return fmt.Sprintf("[%s] %q", s.moduleID, s.Name)
}
