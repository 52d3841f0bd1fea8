// SPDX-License-Identifier: MIT
package routing

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Device is a PulseAudio sink or source as reported by `pactl list short`.
type Device struct {
	Index int
	Name  string
}

// Stream is a PulseAudio sink-input (playback) or source-output (record)
// stream as reported by `pactl list short sink-inputs|source-outputs`.
type Stream struct {
	Index   int
	AppName string
}

// ListSinks returns all PulseAudio sinks.
func ListSinks(ctx context.Context) ([]Device, error) {
	return listDevices(ctx, "sinks")
}

// ListSources returns all PulseAudio sources.
func ListSources(ctx context.Context) ([]Device, error) {
	return listDevices(ctx, "sources")
}

func listDevices(ctx context.Context, kind string) ([]Device, error) {
	out, err := execCommand(ctx, "pactl", "list", "short", kind)
	if err != nil {
		return nil, fmt.Errorf("routing: failed to list %s: %w", kind, err)
	}

	var devices []Device
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		devices = append(devices, Device{Index: index, Name: fields[1]})
	}
	return devices, nil
}

// FindDeviceByName returns the device named name, or false if none matches.
func FindDeviceByName(devices []Device, name string) (Device, bool) {
	for _, d := range devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

func listStreams(ctx context.Context, kind string) ([]Stream, error) {
	out, err := execCommand(ctx, "pactl", "list", "short", kind)
	if err != nil {
		return nil, fmt.Errorf("routing: failed to list %s: %w", kind, err)
	}

	var streams []Stream
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 2 {
			continue
		}
		index, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		streams = append(streams, Stream{Index: index, AppName: fields[1]})
	}
	return streams, nil
}

// ListPlaybackStreams returns active sink-input streams (what's currently
// playing).
func ListPlaybackStreams(ctx context.Context) ([]Stream, error) {
	return listStreams(ctx, "sink-inputs")
}

// ListRecordStreams returns active source-output streams (what's currently
// recording).
func ListRecordStreams(ctx context.Context) ([]Stream, error) {
	return listStreams(ctx, "source-outputs")
}

// FindStreamByName returns the first stream whose application name contains
// searchedName, or false if none matches.
func FindStreamByName(streams []Stream, searchedName string) (Stream, bool) {
	for _, s := range streams {
		if strings.Contains(s.AppName, searchedName) {
			return s, true
		}
	}
	return Stream{}, false
}

// DefaultSinkName returns the name of the current default sink.
func DefaultSinkName(ctx context.Context) (string, error) {
	out, err := execCommand(ctx, "pactl", "get-default-sink")
	if err != nil {
		return "", fmt.Errorf("routing: failed to get default sink: %w", err)
	}
	name := strings.TrimSpace(out)
	if name == "" {
		return "", fmt.Errorf("routing: no default sink found")
	}
	return name, nil
}

// SetDefaultSink sets the system default sink by name.
func SetDefaultSink(ctx context.Context, name string) error {
	if _, err := execCommand(ctx, "pactl", "set-default-sink", name); err != nil {
		return fmt.Errorf("routing: failed to set default sink to %q: %w", name, err)
	}
	return nil
}

// MoveSinkInput redirects the playback stream at streamIndex to the sink at
// sinkIndex.
func MoveSinkInput(ctx context.Context, streamIndex, sinkIndex int) error {
	_, err := execCommand(ctx, "pactl", "move-sink-input", strconv.Itoa(streamIndex), strconv.Itoa(sinkIndex))
	if err != nil {
		return fmt.Errorf("routing: failed to move sink-input %d to sink %d: %w", streamIndex, sinkIndex, err)
	}
	return nil
}

// MoveSourceOutput redirects the record stream at streamIndex to the source
// at sourceIndex.
func MoveSourceOutput(ctx context.Context, streamIndex, sourceIndex int) error {
	_, err := execCommand(ctx, "pactl", "move-source-output", strconv.Itoa(streamIndex), strconv.Itoa(sourceIndex))
	if err != nil {
		return fmt.Errorf("routing: failed to move source-output %d to source %d: %w", streamIndex, sourceIndex, err)
	}
	return nil
}
