/*Package spectrometer provides type and interface definitions for spectrometers

The Spectrometer type contains the capability set needed by the acquisition
coordinator.  Concrete devices (an SDK binding, or the simulator in this
package) implement it and add their own lifecycle methods.

*/
package spectrometer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Settings holds the measurement parameters common to all spectrometers
type Settings struct {
	// IntegrationTime is the exposure duration of a single scan
	IntegrationTime time.Duration `json:"integrationTime" yaml:"IntegrationTime"`

	// Averages is the number of scans averaged into one reported spectrum
	Averages int `json:"averages" yaml:"Averages"`
}

// Validate returns an error if the settings are not usable by any device
func (s Settings) Validate() error {
	if s.IntegrationTime <= 0 {
		return fmt.Errorf("integration time must be positive, got %v", s.IntegrationTime)
	}
	if s.Averages < 1 {
		return fmt.Errorf("averages must be >= 1, got %d", s.Averages)
	}
	return nil
}

// Sample is a single acquired spectrum with its acquisition metadata
type Sample struct {
	// Timestamp is the host time at which the spectrum was read out
	Timestamp time.Time `json:"timestamp"`

	// Wavelengths is the calibrated wavelength of each pixel in nm,
	// strictly increasing
	Wavelengths []float64 `json:"wavelengths"`

	// Intensities is the counts at each pixel, same length as Wavelengths
	Intensities []float64 `json:"intensities"`

	// IntegrationTime is the per-scan exposure used for this sample
	IntegrationTime time.Duration `json:"integrationTime"`

	// Averages is the number of scans averaged into this sample
	Averages int `json:"averages"`
}

// Validate checks the structural invariants of a sample: equal length
// wavelength and intensity arrays, and strictly increasing wavelengths
func (s Sample) Validate() error {
	if len(s.Wavelengths) != len(s.Intensities) {
		return fmt.Errorf("wavelength and intensity arrays differ in length, %d != %d",
			len(s.Wavelengths), len(s.Intensities))
	}
	if len(s.Wavelengths) == 0 {
		return fmt.Errorf("sample contains no pixels")
	}
	for i := 1; i < len(s.Wavelengths); i++ {
		if s.Wavelengths[i] <= s.Wavelengths[i-1] {
			return fmt.Errorf("wavelengths not strictly increasing at pixel %d, %f <= %f",
				i, s.Wavelengths[i], s.Wavelengths[i-1])
		}
	}
	return nil
}

// EncodeCSV writes the sample as two-column CSV (wavelength, intensity)
func (s Sample) EncodeCSV(w io.Writer) error {
	w2 := bufio.NewWriter(w)
	w3 := csv.NewWriter(w2)
	err := w3.Write([]string{"wavelength", "intensity"})
	if err != nil {
		return err
	}
	row := make([]string, 2)
	for i := 0; i < len(s.Wavelengths); i++ {
		row[0] = strconv.FormatFloat(s.Wavelengths[i], 'G', -1, 64)
		row[1] = strconv.FormatFloat(s.Intensities[i], 'G', -1, 64)
		err = w3.Write(row)
		if err != nil {
			return err
		}
	}
	w3.Flush()
	return w2.Flush()
}

// Spectrometer describes the capability set the acquisition coordinator
// needs from a device.  Concrete bindings will have additional methods
// (lifecycle, hardware trigger modes) not required here.
type Spectrometer interface {
	// Configure pushes measurement settings to the device
	Configure(Settings) error

	// Measure acquires one spectrum with the configured settings,
	// blocking until readout completes
	Measure() (Sample, error)

	// Wavelengths returns the wavelength calibration of the device in nm
	Wavelengths() ([]float64, error)
}

// TimingInfo describes the wall-clock cost of a measurement versus the
// exposure time the device was asked for
type TimingInfo struct {
	// Wall is the total wall-clock duration of the Measure call
	Wall time.Duration `json:"wall"`

	// Exposure is integration time x averages
	Exposure time.Duration `json:"exposure"`

	// Overhead is Wall - Exposure; readout, transfer, and software cost
	Overhead time.Duration `json:"overhead"`
}

// MeasureTiming runs a single measurement and reports how much longer the
// call took than the configured exposure.  Useful when choosing a trigger
// timeout for a synchronized run.
func MeasureTiming(s Spectrometer, set Settings) (Sample, TimingInfo, error) {
	t1 := time.Now()
	samp, err := s.Measure()
	wall := time.Since(t1)
	if err != nil {
		return Sample{}, TimingInfo{}, err
	}
	exp := set.IntegrationTime * time.Duration(set.Averages)
	return samp, TimingInfo{Wall: wall, Exposure: exp, Overhead: wall - exp}, nil
}
