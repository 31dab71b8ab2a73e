/*Package acquire implements the triggered acquisition loop for synchronized
spectroelectrochemistry

The Coordinator owns one spectrometer and one trigger source for the life of
a run.  Each iteration waits for a potentiostat edge, immediately measures a
spectrum, and emits a record pairing the edge time with the acquisition time.
A missed edge advances the iteration counter; a device fault ends the run
with whatever was collected so far.

Device access is serialized: while Run is active the handles are only
touched from its goroutine, and Configure and Run reject each other while
the other is in flight.  Abort is the one cross-goroutine entry point; it
raises a flag checked before each trigger wait, so abort latency is bounded
by one trigger timeout and never interrupts an in-flight measurement.
*/
package acquire

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/waldowlab/specsync/spectrometer"
	"github.com/waldowlab/specsync/trigger"
)

// Status describes the coordinator's position in its lifecycle
type Status int

const (
	// Idle is the initial state; Run is not callable until Configure succeeds
	Idle Status = iota

	// Configured means settings have been pushed to the device and Run may
	// be called
	Configured

	// Running means the wait/measure/record loop is active
	Running

	// Completed means all requested iterations were processed
	Completed

	// Aborted means an external abort was honored before the loop finished
	Aborted

	// Failed means a device fault ended the run early
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Configured:
		return "Configured"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Aborted:
		return "Aborted"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ErrAlreadyRunning is generated when Run or Configure is called while a
// run is in progress
var ErrAlreadyRunning = errors.New("acquisition already running")

// ConfigError is generated for bad parameters or calls made in the wrong
// state.  It is recoverable; the caller may reconfigure and retry.
type ConfigError struct {
	// Op is the operation that was rejected
	Op string

	// Err is the underlying cause
	Err error
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Op, e.Err)
}

func (e ConfigError) Unwrap() error { return e.Err }

// DeviceError is generated when a call into the hardware fails or returns
// an invalid value.  It is fatal to the run; partial results are preserved.
type DeviceError struct {
	// Op is the device call that failed, e.g. "spectrometer.Measure"
	Op string

	// Err is the underlying cause
	Err error
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("device error in %s: %v", e.Op, e.Err)
}

func (e DeviceError) Unwrap() error { return e.Err }

// Record pairs one trigger edge with the spectrum it caused
type Record struct {
	// TriggerTime is the host time of the trigger edge
	TriggerTime time.Time `json:"triggerTime"`

	// Sample is the spectrum acquired after the edge
	Sample spectrometer.Sample `json:"sample"`

	// Latency is Sample.Timestamp - TriggerTime
	Latency time.Duration `json:"latency"`

	// CorrelationWarning marks a negative or implausibly large latency.
	// The record is kept either way; the warning is evidence of a race
	// between trigger detection and acquisition start and must stay
	// visible to the experimenter.
	CorrelationWarning bool `json:"correlationWarning"`
}

// Result is everything a run produced
type Result struct {
	// Records are the synchronized records in acquisition order
	Records []Record `json:"records"`

	// Missed counts trigger waits that timed out
	Missed int `json:"missed"`

	// Warnings counts records flagged with a correlation warning
	Warnings int `json:"warnings"`

	// Status is the terminal state of the run
	Status Status `json:"status"`
}

// Coordinator drives repeated trigger-wait -> measure -> record cycles.
// It exclusively owns its spectrometer and trigger handles for the
// duration of a run.
type Coordinator struct {
	mu sync.Mutex

	spec spectrometer.Spectrometer
	trig trigger.Trigger

	settings    spectrometer.Settings
	state       Status
	abortReq    bool
	configuring bool
}

// New returns a Coordinator in the Idle state owning the given handles
func New(s spectrometer.Spectrometer, t trigger.Trigger) *Coordinator {
	return &Coordinator{spec: s, trig: t, state: Idle}
}

// State returns the current lifecycle state
func (c *Coordinator) State() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Settings returns the most recently applied settings
func (c *Coordinator) Settings() spectrometer.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Configure validates the settings and forwards them to the spectrometer.
// It may be called again between runs; calling it twice with the same valid
// parameters is a no-op at the device level.  Configure and Run exclude
// each other: Configure is rejected while a run is active, and Run is
// rejected while a configure is still inside the device call, so the
// device handle only ever sees one caller.
func (c *Coordinator) Configure(set spectrometer.Settings) error {
	err := set.Validate()
	if err != nil {
		return ConfigError{Op: "Configure", Err: err}
	}
	c.mu.Lock()
	if c.state == Running || c.configuring {
		c.mu.Unlock()
		return ConfigError{Op: "Configure", Err: ErrAlreadyRunning}
	}
	c.configuring = true
	c.mu.Unlock()
	err = c.spec.Configure(set)
	c.mu.Lock()
	c.configuring = false
	if err != nil {
		c.mu.Unlock()
		return ConfigError{Op: "spectrometer.Configure", Err: err}
	}
	c.settings = set
	c.state = Configured
	c.mu.Unlock()
	return nil
}

// Abort requests early termination of a run in progress.  It is safe to
// call from any goroutine; the flag is honored before the next trigger
// wait, never mid-measurement.
func (c *Coordinator) Abort() {
	c.mu.Lock()
	c.abortReq = true
	c.mu.Unlock()
}

// aborted reads the abort flag; Run clears it when the loop starts
func (c *Coordinator) aborted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abortReq
}

// finish records the terminal state of a run
func (c *Coordinator) finish(s Status) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

/*Run executes the acquisition loop for count expected triggers.

Each iteration waits up to timeout for an edge.  An edge is answered with an
immediate measurement and a Record; a timeout is counted as a missed trigger
and the loop continues.  Records with negative latency, or latency beyond
what the exposure and the trigger timeout can explain, are flagged with a
correlation warning but kept.

The Result always contains whatever was collected.  The error is non-nil
only when the run Failed; an aborted run returns a nil error with status
Aborted.
*/
func (c *Coordinator) Run(count int, timeout time.Duration) (Result, error) {
	c.mu.Lock()
	st := c.state
	if count < 1 {
		c.mu.Unlock()
		return Result{Status: st}, ConfigError{Op: "Run", Err: fmt.Errorf("expected trigger count must be >= 1, got %d", count)}
	}
	if timeout <= 0 {
		c.mu.Unlock()
		return Result{Status: st}, ConfigError{Op: "Run", Err: fmt.Errorf("trigger timeout must be positive, got %v", timeout)}
	}
	if c.configuring {
		c.mu.Unlock()
		return Result{Status: st}, ConfigError{Op: "Run", Err: ErrAlreadyRunning}
	}
	switch st {
	case Running:
		c.mu.Unlock()
		return Result{Status: Running}, ConfigError{Op: "Run", Err: ErrAlreadyRunning}
	case Idle:
		c.mu.Unlock()
		return Result{Status: Idle}, ConfigError{Op: "Run", Err: errors.New("coordinator not configured")}
	}
	set := c.settings
	c.state = Running
	c.abortReq = false
	c.mu.Unlock()

	// a latency beyond exposure + timeout cannot be explained by the
	// edge this iteration waited on
	plausible := set.IntegrationTime*time.Duration(set.Averages) + timeout

	res := Result{Records: []Record{}}
	for i := 0; i < count; i++ {
		if c.aborted() {
			res.Status = Aborted
			c.finish(Aborted)
			return res, nil
		}
		edge, err := c.trig.WaitForEdge(timeout)
		if errors.Is(err, trigger.ErrTimeout) {
			res.Missed++
			continue
		}
		if err != nil {
			res.Status = Failed
			c.finish(Failed)
			return res, DeviceError{Op: "trigger.WaitForEdge", Err: err}
		}
		samp, err := c.spec.Measure()
		if err != nil {
			res.Status = Failed
			c.finish(Failed)
			return res, DeviceError{Op: "spectrometer.Measure", Err: err}
		}
		err = samp.Validate()
		if err != nil {
			res.Status = Failed
			c.finish(Failed)
			return res, DeviceError{Op: "spectrometer.Measure", Err: err}
		}
		rec := Record{
			TriggerTime: edge,
			Sample:      samp,
			Latency:     samp.Timestamp.Sub(edge),
		}
		if rec.Latency < 0 || rec.Latency > plausible {
			rec.CorrelationWarning = true
			res.Warnings++
		}
		res.Records = append(res.Records, rec)
	}
	res.Status = Completed
	c.finish(Completed)
	return res, nil
}
