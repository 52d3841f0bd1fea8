// SPDX-License-Identifier: MIT
// Package diag streams a small fixed-size diagnostic record of the live
// analysis state — short-term energy, the short and long beat-detector
// averages, a beat flag, BPM confidence, and phase error — over UDP and WebSocket, independent of
// the GPU frame export in internal/export.
package diag

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// recordSize is the wire size of a Record: sequence(4) + timestamp(8) +
// 6 float32/uint32 payload fields (4 each).
const recordSize = 4 + 8 + 6*4

// Record is one diagnostic sample.
type Record struct {
	Energy        float32 `json:"energy"`
	ShortAvg      float32 `json:"short_avg"`
	LongAvg       float32 `json:"long_avg"`
	IsBeat        uint32  `json:"is_beat"`
	BPMConfidence float32 `json:"bpm_confidence"`
	PhaseError    float32 `json:"phase_error"`
}

// Encode packs sequence, a nanosecond timestamp, and the record fields into
// a fixed-size big-endian byte slice, following the same
// sequence/timestamp/payload framing as the UDP FFT magnitude packets.
func (r Record) Encode(sequence uint32, timestampNanos int64) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, recordSize))

	fields := []any{sequence, timestampNanos, r.Energy, r.ShortAvg, r.LongAvg, r.IsBeat, r.BPMConfidence, r.PhaseError}
	for _, f := range fields {
		if err := binary.Write(buf, binary.BigEndian, f); err != nil {
			return nil, fmt.Errorf("diag: failed to encode record: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Decode unpacks a record previously produced by Encode, returning the
// sequence number, timestamp, and record.
func Decode(data []byte) (sequence uint32, timestampNanos int64, rec Record, err error) {
	if len(data) != recordSize {
		return 0, 0, Record{}, fmt.Errorf("diag: record is %d bytes, want %d", len(data), recordSize)
	}

	r := bytes.NewReader(data)
	fields := []any{&sequence, &timestampNanos, &rec.Energy, &rec.ShortAvg, &rec.LongAvg, &rec.IsBeat, &rec.BPMConfidence, &rec.PhaseError}
	for _, f := range fields {
		if err := binary.Read(r, binary.BigEndian, f); err != nil {
			return 0, 0, Record{}, fmt.Errorf("diag: failed to decode record: %w", err)
		}
	}
	return sequence, timestampNanos, rec, nil
}
