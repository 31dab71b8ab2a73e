// Package util contains misc internal utilities.
package util

import (
	"time"
)

// SecsToDuration converts a floating point number of seconds to a time.Duration
func SecsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

// Clamp restricts a value to the range [low, high]
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Arange returns a slice of num evenly spaced values on [start, stop).
// e.g. Arange(0, 10, 5) => [0 2 4 6 8]
func Arange(start, stop float64, num int) []float64 {
	step := (stop - start) / float64(num)
	out := make([]float64, num)
	for i := 0; i < num; i++ {
		out[i] = start + float64(i)*step
	}
	return out
}
