package spectrometer

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/waldowlab/specsync/util"
)

const (
	// simPixels matches the usable window of the real detector after
	// trimming to the calibrated 380-1100 nm region
	simPixels = 1265

	simStartNm = 380.0
	simStopNm  = 1100.0
)

// Sim is a simulated spectrometer.  It produces a Gaussian absorption band
// on a flat baseline with shot-like noise, and honors the configured
// integration time by sleeping.  Safe for use from a single goroutine at a
// time, like the hardware it stands in for.
type Sim struct {
	sync.Mutex

	grid     []float64
	settings Settings
	cfgd     bool

	// Center and Width are the band shape in nm; Amplitude and Baseline
	// are in counts
	Center    float64
	Width     float64
	Amplitude float64
	Baseline  float64

	// FailNext makes the next Measure call return an error, for tests
	// and for dry-running failure handling
	FailNext error
}

// NewSim returns a simulator with the default detector geometry and a
// band at 550 nm
func NewSim() *Sim {
	return &Sim{
		grid:      util.Arange(simStartNm, simStopNm, simPixels),
		Center:    550,
		Width:     40,
		Amplitude: 12000,
		Baseline:  1800,
	}
}

// Configure stores the settings after validation
func (s *Sim) Configure(set Settings) error {
	err := set.Validate()
	if err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	s.settings = set
	s.cfgd = true
	return nil
}

// Measure sleeps for the configured exposure, then synthesizes a spectrum
func (s *Sim) Measure() (Sample, error) {
	s.Lock()
	defer s.Unlock()
	if s.FailNext != nil {
		err := s.FailNext
		s.FailNext = nil
		return Sample{}, err
	}
	if !s.cfgd {
		return Sample{}, fmt.Errorf("simulated spectrometer not configured")
	}
	time.Sleep(s.settings.IntegrationTime * time.Duration(s.settings.Averages))
	intens := make([]float64, len(s.grid))
	for i, wvl := range s.grid {
		arg := (wvl - s.Center) / s.Width
		signal := s.Baseline + s.Amplitude*math.Exp(-arg*arg)
		noise := rand.NormFloat64() * math.Sqrt(signal) / math.Sqrt(float64(s.settings.Averages))
		// the high resolution ADC saturates at 16 bits
		intens[i] = util.Clamp(signal+noise, 0, 65535)
	}
	return Sample{
		Timestamp:       time.Now(),
		Wavelengths:     append([]float64(nil), s.grid...),
		Intensities:     intens,
		IntegrationTime: s.settings.IntegrationTime,
		Averages:        s.settings.Averages,
	}, nil
}

// Wavelengths returns the simulated wavelength calibration
func (s *Sim) Wavelengths() ([]float64, error) {
	return append([]float64(nil), s.grid...), nil
}
