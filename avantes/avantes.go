/*Package avantes exposes control of Avantes AvaSpec spectrometers in Go via their SDK.

The device handle is an explicit object with an Open/Close lifecycle; there
is no package-level SDK state.  The binding covers the subset of the AS5216
/ AvaSpec-DLL interface used for synchronized spectroelectrochemistry:
activation, wavelength calibration, measurement preparation, and polled
scope data readout.

*/
package avantes

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lavs
#include <stdlib.h>
#include <stdbool.h>
#include <avaspec.h>

*/
import "C"
import (
	"fmt"
	"time"
	"unsafe"

	"github.com/waldowlab/specsync/spectrometer"
)

const (
	// WRAPVER is the avantes wrapper code version.
	// Increment this when pkg avantes is updated.
	WRAPVER = 1

	// maxPixels is the largest detector the SDK supports; calibration
	// buffers are allocated at this size
	maxPixels = 4096

	// pollPeriod is the spacing of AVS_PollScan calls while a
	// measurement is in flight
	pollPeriod = time.Millisecond

	// measureGrace is added to the exposure when computing the readout
	// deadline; covers USB transfer and SDK overhead
	measureGrace = 5 * time.Second

	// windowFirst and windowLast bound the usable pixel window of the
	// AvaSpec-ULS2048 on this rig, the calibrated ~380-1100 nm region
	windowFirst = 395
	windowLast  = 1660
)

var (
	// ErrCodes is a map of error codes (ints) to error strings
	ErrCodes = map[AVSError]string{
		0:   "ERR_SUCCESS",
		-1:  "ERR_INVALID_PARAMETER",
		-2:  "ERR_OPERATION_NOT_SUPPORTED",
		-3:  "ERR_DEVICE_NOT_FOUND",
		-4:  "ERR_INVALID_DEVICE_ID",
		-5:  "ERR_OPERATION_PENDING",
		-6:  "ERR_TIMEOUT",
		-8:  "ERR_INVALID_MEAS_DATA",
		-9:  "ERR_INVALID_SIZE",
		-10: "ERR_INVALID_PIXEL_RANGE",
		-11: "ERR_INVALID_INT_TIME",
		-12: "ERR_INVALID_COMBINATION",
		-14: "ERR_NO_MEAS_BUFFER_AVAIL",
		-15: "ERR_UNKNOWN",
		-16: "ERR_COMMUNICATION",
		-17: "ERR_NO_SPECTRA_IN_RAM",
		-18: "ERR_INVALID_DLL_VERSION",
		-19: "ERR_NO_MEMORY",
		-20: "ERR_DLL_INITIALISATION",
		-21: "ERR_INVALID_STATE",
		-22: "ERR_INVALID_REPLY",
		-24: "ERR_ACCESS",
	}
)

// AVSError represents an SDK error code
type AVSError int

func (e AVSError) Error() string {
	if s, ok := ErrCodes[e]; ok {
		return fmt.Sprintf("%d - %s", int(e), s)
	}
	return fmt.Sprintf("%d - UNKNOWN_ERROR_CODE", int(e))
}

// Error converts an SDK return code to a Go error, nil if the code is
// non-negative (the SDK returns counts from some calls)
func Error(code int) error {
	if code >= 0 {
		return nil
	}
	return AVSError(code)
}

// TriggerMode is the hardware triggering mode of the spectrometer itself
type TriggerMode uint8

const (
	// TriggerModeSoftware starts scans from AVS_Measure calls
	TriggerModeSoftware TriggerMode = 0

	// TriggerModeHardware arms scans on the external trigger input
	TriggerModeHardware TriggerMode = 1
)

// SourceType selects between edge and level hardware triggering
type SourceType uint8

const (
	// SourceEdge triggers on a transition
	SourceEdge SourceType = 0

	// SourceLevel triggers while the line is held
	SourceLevel SourceType = 1
)

// Device is a handle to an activated AvaSpec spectrometer
type Device struct {
	handle C.AvsHandle

	serial      string
	pixels      int
	wavelengths []float64

	settings spectrometer.Settings
	trigMode TriggerMode
	trigSrc  SourceType
}

/*Open initializes the SDK, activates the first detected spectrometer, loads
its wavelength calibration, enables the high resolution ADC, and prepares a
default measurement.  port 0 selects USB.

Close must be called to deactivate the device and release the SDK.
*/
func Open(port int) (*Device, error) {
	err := Error(int(C.AVS_Init(C.short(port))))
	if err != nil {
		return nil, fmt.Errorf("AVS_Init: %w", err)
	}
	n := int(C.AVS_UpdateUSBDevices())
	if n < 1 {
		C.AVS_Done()
		return nil, fmt.Errorf("no Avantes spectrometers detected")
	}
	var (
		ident    C.AvsIdentityType
		required C.uint
	)
	err = Error(int(C.AVS_GetList(C.uint(unsafe.Sizeof(ident)), &required, &ident)))
	if err != nil {
		C.AVS_Done()
		return nil, fmt.Errorf("AVS_GetList: %w", err)
	}
	handle := C.AVS_Activate(&ident)
	if int(handle) < 0 {
		C.AVS_Done()
		return nil, fmt.Errorf("AVS_Activate: %w", AVSError(int(handle)))
	}
	d := &Device{
		handle: handle,
		serial: C.GoString(&ident.SerialNumber[0]),
	}
	var npx C.ushort
	err = Error(int(C.AVS_GetNumPixels(handle, &npx)))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("AVS_GetNumPixels: %w", err)
	}
	d.pixels = int(npx)
	buf := make([]C.double, maxPixels)
	err = Error(int(C.AVS_GetLambda(handle, &buf[0])))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("AVS_GetLambda: %w", err)
	}
	d.wavelengths = make([]float64, d.pixels)
	for i := 0; i < d.pixels; i++ {
		d.wavelengths[i] = float64(buf[i])
	}
	err = Error(int(C.AVS_UseHighResAdc(handle, C.bool(true))))
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("AVS_UseHighResAdc: %w", err)
	}
	// push a benign default so the device is measurable immediately
	err = d.Configure(spectrometer.Settings{
		IntegrationTime: 22 * time.Microsecond,
		Averages:        200,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// SerialNumber returns the serial number reported at activation
func (d *Device) SerialNumber() string {
	return d.serial
}

// Pixels returns the detector pixel count before window trimming
func (d *Device) Pixels() int {
	return d.pixels
}

// window returns the trimmed pixel range, falling back to the full
// detector when it is smaller than the standard window
func (d *Device) window() (int, int) {
	if d.pixels < windowLast {
		return 0, d.pixels
	}
	return windowFirst, windowLast
}

// prepare pushes the current settings and trigger configuration to the
// device via AVS_PrepareMeasure
func (d *Device) prepare() error {
	var cfg C.MeasConfigType
	cfg.m_StartPixel = 0
	cfg.m_StopPixel = C.ushort(d.pixels - 1)
	cfg.m_IntegrationTime = C.float(float64(d.settings.IntegrationTime) / float64(time.Millisecond))
	cfg.m_IntegrationDelay = 0
	cfg.m_NrAverages = C.uint(d.settings.Averages)
	cfg.m_CorDynDark.m_Enable = 0
	cfg.m_CorDynDark.m_ForgetPercentage = 0
	cfg.m_Smoothing.m_SmoothPix = 0
	cfg.m_Smoothing.m_SmoothModel = 0
	cfg.m_SaturationDetection = 0
	cfg.m_Trigger.m_Mode = C.uchar(d.trigMode)
	cfg.m_Trigger.m_Source = 0
	cfg.m_Trigger.m_SourceType = C.uchar(d.trigSrc)
	cfg.m_Control.m_StrobeControl = 0
	cfg.m_Control.m_LaserDelay = 0
	cfg.m_Control.m_LaserWidth = 0
	cfg.m_Control.m_LaserWaveLength = 0
	cfg.m_Control.m_StoreToRam = 0
	err := Error(int(C.AVS_PrepareMeasure(d.handle, &cfg)))
	if err != nil {
		return fmt.Errorf("AVS_PrepareMeasure: %w", err)
	}
	return nil
}

// Configure validates the settings and prepares the device with them
func (d *Device) Configure(set spectrometer.Settings) error {
	err := set.Validate()
	if err != nil {
		return err
	}
	d.settings = set
	return d.prepare()
}

// SetHardwareTrigger selects the spectrometer's own triggering mode.  The
// coordinator runs with software triggering and external edge correlation;
// hardware mode is for rigs that re-arm the detector per edge.
func (d *Device) SetHardwareTrigger(mode TriggerMode, src SourceType) error {
	d.trigMode = mode
	d.trigSrc = src
	return d.prepare()
}

// Measure starts one measurement and blocks until readout, polling the SDK
// for data-ready.  The sample timestamp is host time at readout.
func (d *Device) Measure() (spectrometer.Sample, error) {
	var zero spectrometer.Sample
	err := Error(int(C.AVS_Measure(d.handle, nil, 1)))
	if err != nil {
		return zero, fmt.Errorf("AVS_Measure: %w", err)
	}
	exposure := d.settings.IntegrationTime * time.Duration(d.settings.Averages)
	deadline := time.Now().Add(exposure + measureGrace)
	for int(C.AVS_PollScan(d.handle)) != 1 {
		if time.Now().After(deadline) {
			return zero, fmt.Errorf("AVS_PollScan: data not ready after %v", exposure+measureGrace)
		}
		time.Sleep(pollPeriod)
	}
	var ticks C.uint
	buf := make([]C.double, maxPixels)
	err = Error(int(C.AVS_GetScopeData(d.handle, &ticks, &buf[0])))
	if err != nil {
		return zero, fmt.Errorf("AVS_GetScopeData: %w", err)
	}
	ts := time.Now()
	lo, hi := d.window()
	intens := make([]float64, hi-lo)
	for i := lo; i < hi; i++ {
		intens[i-lo] = float64(buf[i])
	}
	return spectrometer.Sample{
		Timestamp:       ts,
		Wavelengths:     append([]float64(nil), d.wavelengths[lo:hi]...),
		Intensities:     intens,
		IntegrationTime: d.settings.IntegrationTime,
		Averages:        d.settings.Averages,
	}, nil
}

// Wavelengths returns the calibrated wavelengths of the trimmed pixel
// window in nm
func (d *Device) Wavelengths() ([]float64, error) {
	lo, hi := d.window()
	return append([]float64(nil), d.wavelengths[lo:hi]...), nil
}

// Close deactivates the device and releases the SDK
func (d *Device) Close() error {
	ok := bool(C.AVS_Deactivate(d.handle))
	C.AVS_Done()
	if !ok {
		return fmt.Errorf("AVS_Deactivate reported failure for handle %d", int(d.handle))
	}
	return nil
}
