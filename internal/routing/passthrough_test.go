// SPDX-License-Identifier: MIT
package routing

import (
	"context"
	"testing"
)

func TestEstablishAndRestoreRoundTrip(t *testing.T) {
	var calls []string
	withMockExec(t, func(ctx context.Context, name string, args ...string) (string, error) {
		calls = append(calls, args[0])
		switch args[0] {
		case "get-default-sink":
			return "alsa_output.built_in\n", nil
		case "load-module":
			return "99\n", nil
		default:
			return "", nil
		}
	})

	pt, err := Establish(context.Background(), "visualizer_passthrough", true)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if pt.MonitorSource() != "visualizer_passthrough.monitor" {
		t.Errorf("MonitorSource() = %q", pt.MonitorSource())
	}

	if err := pt.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	// Calling Restore twice (e.g. once from a defer, once from a signal
	// handler) must not re-issue set-default-sink or unload-module.
	if err := pt.Restore(context.Background()); err != nil {
		t.Fatalf("second Restore: %v", err)
	}

	setDefaultCount := 0
	for _, c := range calls {
		if c == "set-default-sink" {
			setDefaultCount++
		}
	}
	if setDefaultCount != 2 { // once to redirect, once to restore
		t.Errorf("set-default-sink called %d times, want 2", setDefaultCount)
	}
}

func TestEstablishWithoutRedirectSkipsDefaultSinkChange(t *testing.T) {
	var setDefaultCalls int
	withMockExec(t, func(ctx context.Context, name string, args ...string) (string, error) {
		if args[0] == "get-default-sink" {
			return "builtin\n", nil
		}
		if args[0] == "set-default-sink" {
			setDefaultCalls++
		}
		if args[0] == "load-module" {
			return "1\n", nil
		}
		return "", nil
	})

	pt, err := Establish(context.Background(), "sink", false)
	if err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if setDefaultCalls != 0 {
		t.Errorf("expected no set-default-sink call, got %d", setDefaultCalls)
	}
	_ = pt.Restore(context.Background())
	if setDefaultCalls != 1 {
		t.Errorf("expected one set-default-sink call after Restore, got %d", setDefaultCalls)
	}
}

func TestEstablishReleasesSinkWhenRedirectFails(t *testing.T) {
	var unloadCalled bool
	withMockExec(t, func(ctx context.Context, name string, args ...string) (string, error) {
		switch args[0] {
		case "get-default-sink":
			return "builtin\n", nil
		case "load-module":
			return "5\n", nil
		case "set-default-sink":
			return "", context.DeadlineExceeded
		case "unload-module":
			unloadCalled = true
			return "", nil
		}
		return "", nil
	})

	_, err := Establish(context.Background(), "sink", true)
	if err == nil {
		t.Fatal("expected error when set-default-sink fails")
	}
	if !unloadCalled {
		t.Error("expected virtual sink to be released after failed redirect")
	}
}
