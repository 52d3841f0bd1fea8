// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
)

// Shared fixtures for the gate and recording hot-path tests.
const (
	testSampleRate = 44100.0
	testFrameSize  = 512

	lowThreshold  = int32(100000)
	highThreshold = int32(1 << 28)
)

var (
	testBuffer  = makeToneBuffer(testFrameSize, 10000000)
	quietBuffer = makeToneBuffer(testFrameSize, 1000000)
	loudBuffer  = makeToneBuffer(testFrameSize, 1<<29)
)

func makeToneBuffer(n int, amplitude int32) []int32 {
	buf := make([]int32, n)
	for i := range buf {
		buf[i] = int32(float64(amplitude) * math.Sin(float64(i)*0.1))
	}
	return buf
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.3f", f)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
