package trigger

import (
	"fmt"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// gpioPollPeriod is how often the edge-detect flag is polled.  The BCM
// peripheral latches the edge, so polling only bounds timestamp jitter,
// not whether the edge is seen.
const gpioPollPeriod = 100 * time.Microsecond

// GPIO is a trigger source backed by a Raspberry Pi input pin.  The pin is
// configured for rising edge detection with the pull-down resistor engaged,
// matching a TTL trigger line that idles low.
type GPIO struct {
	pin rpio.Pin
}

// NewGPIO maps the GPIO peripheral and configures the given BCM pin for
// rising edge detection.  Close must be called to unmap the peripheral.
func NewGPIO(pin int) (*GPIO, error) {
	err := rpio.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to map GPIO memory: %w", err)
	}
	p := rpio.Pin(pin)
	p.Input()
	p.PullDown()
	p.Detect(rpio.RiseEdge)
	return &GPIO{pin: p}, nil
}

// WaitForEdge polls the latched edge-detect flag until it fires or the
// timeout elapses
func (g *GPIO) WaitForEdge(timeout time.Duration) (time.Time, error) {
	deadline := time.Now().Add(timeout)
	for {
		if g.pin.EdgeDetected() {
			return time.Now(), nil
		}
		if time.Now().After(deadline) {
			return time.Time{}, ErrTimeout
		}
		time.Sleep(gpioPollPeriod)
	}
}

// Close disables edge detection and unmaps the GPIO peripheral
func (g *GPIO) Close() error {
	g.pin.Detect(rpio.NoEdge)
	return rpio.Close()
}
