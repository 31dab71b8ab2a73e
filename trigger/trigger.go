/*Package trigger provides interfaces and implementations for hardware trigger sources

A trigger source reports discrete electrical edges from the potentiostat
sequence.  The coordinator blocks on WaitForEdge for each expected event;
a timeout is an ordinary outcome of real-time experiments, distinguished
from device failure by the ErrTimeout sentinel.

Implementations:
	GPIO           a Raspberry Pi input pin with edge detection
	SerialRepeater a trigger repeater box emitting one framed byte per edge
	               on an RS-232 line
	Sim            a software edge generator for tests and mock servers
*/
package trigger

import (
	"errors"
	"time"
)

// ErrTimeout is returned by WaitForEdge when no edge arrives within the
// caller's timeout.  It indicates a missed trigger, not a broken device.
var ErrTimeout = errors.New("timed out waiting for trigger edge")

// Trigger is a source of hardware edge events
type Trigger interface {
	// WaitForEdge blocks until an edge is detected or the timeout elapses.
	// On success it returns the host time at which the edge was observed.
	// On timeout it returns ErrTimeout; any other error is a device fault.
	WaitForEdge(timeout time.Duration) (time.Time, error)
}
