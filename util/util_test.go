package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/waldowlab/specsync/util"
)

func ExampleArange() {
	fmt.Println(util.Arange(0, 10, 5))
	// Output: [0 2 4 6 8]
}

func TestArangeLengthAndSpacing(t *testing.T) {
	out := util.Arange(380, 1100, 1265)
	if len(out) != 1265 {
		t.Fatalf("expected 1265 values, got %d", len(out))
	}
	if out[0] != 380 {
		t.Errorf("expected start 380, got %f", out[0])
	}
	if out[len(out)-1] >= 1100 {
		t.Errorf("expected half-open interval, last value %f >= 1100", out[len(out)-1])
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			t.Fatalf("values not strictly increasing at %d", i)
		}
	}
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != high {
		t.Errorf("expected out of range value %f to be clipped to %f, got %f", input, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != low {
		t.Errorf("expected out of range value %f to be clipped to %f, got %f", input, low, clamped)
	}
}

func TestClampPassthrough(t *testing.T) {
	if out := util.Clamp(5, 0, 10); out != 5 {
		t.Errorf("expected in-range value to pass through, got %f", out)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
