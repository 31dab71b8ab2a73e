package spectrometer_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/waldowlab/specsync/spectrometer"
)

var errTest = errors.New("injected failure")

func validSample() spectrometer.Sample {
	return spectrometer.Sample{
		Timestamp:       time.Now(),
		Wavelengths:     []float64{400, 500, 600},
		Intensities:     []float64{1, 2, 1},
		IntegrationTime: time.Millisecond,
		Averages:        2,
	}
}

func TestSampleValidateAcceptsGoodSample(t *testing.T) {
	if err := validSample().Validate(); err != nil {
		t.Errorf("expected valid sample to pass, got %v", err)
	}
}

func TestSampleValidateRejectsLengthMismatch(t *testing.T) {
	s := validSample()
	s.Intensities = s.Intensities[:2]
	if err := s.Validate(); err == nil {
		t.Error("expected length mismatch to be rejected")
	}
}

func TestSampleValidateRejectsNonIncreasingWavelengths(t *testing.T) {
	s := validSample()
	s.Wavelengths = []float64{400, 400, 600}
	if err := s.Validate(); err == nil {
		t.Error("expected duplicate wavelength to be rejected")
	}
	s.Wavelengths = []float64{400, 500, 450}
	if err := s.Validate(); err == nil {
		t.Error("expected decreasing wavelength to be rejected")
	}
}

func TestSampleValidateRejectsEmpty(t *testing.T) {
	if err := (spectrometer.Sample{}).Validate(); err == nil {
		t.Error("expected empty sample to be rejected")
	}
}

func TestSettingsValidate(t *testing.T) {
	good := spectrometer.Settings{IntegrationTime: time.Millisecond, Averages: 1}
	if err := good.Validate(); err != nil {
		t.Errorf("expected valid settings to pass, got %v", err)
	}
	bad := []spectrometer.Settings{
		{IntegrationTime: 0, Averages: 1},
		{IntegrationTime: time.Millisecond, Averages: 0},
		{IntegrationTime: -time.Second, Averages: 1},
	}
	for _, set := range bad {
		if err := set.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", set)
		}
	}
}

func TestSampleEncodeCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := validSample().EncodeCSV(buf); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("output not valid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "wavelength" || rows[0][1] != "intensity" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "400" {
		t.Errorf("expected first wavelength 400, got %q", rows[1][0])
	}
}

func TestSimProducesValidSamples(t *testing.T) {
	sim := spectrometer.NewSim()
	err := sim.Configure(spectrometer.Settings{IntegrationTime: time.Microsecond, Averages: 2})
	if err != nil {
		t.Fatal(err)
	}
	samp, err := sim.Measure()
	if err != nil {
		t.Fatal(err)
	}
	if err := samp.Validate(); err != nil {
		t.Errorf("simulated sample invalid: %v", err)
	}
	wvl, err := sim.Wavelengths()
	if err != nil {
		t.Fatal(err)
	}
	if len(wvl) != len(samp.Wavelengths) {
		t.Errorf("calibration length %d != sample length %d", len(wvl), len(samp.Wavelengths))
	}
	if samp.Averages != 2 || samp.IntegrationTime != time.Microsecond {
		t.Errorf("sample does not carry the configured settings: %+v", samp)
	}
}

func TestSimRequiresConfigure(t *testing.T) {
	sim := spectrometer.NewSim()
	if _, err := sim.Measure(); err == nil {
		t.Error("expected measure on unconfigured sim to fail")
	}
}

func TestSimFailNext(t *testing.T) {
	sim := spectrometer.NewSim()
	err := sim.Configure(spectrometer.Settings{IntegrationTime: time.Microsecond, Averages: 1})
	if err != nil {
		t.Fatal(err)
	}
	sim.FailNext = errTest
	if _, err := sim.Measure(); err == nil {
		t.Fatal("expected injected failure")
	}
	if _, err := sim.Measure(); err != nil {
		t.Errorf("expected failure to be consumed, got %v", err)
	}
}

func TestMeasureTimingOverheadNonNegative(t *testing.T) {
	sim := spectrometer.NewSim()
	set := spectrometer.Settings{IntegrationTime: time.Millisecond, Averages: 2}
	if err := sim.Configure(set); err != nil {
		t.Fatal(err)
	}
	_, info, err := spectrometer.MeasureTiming(sim, set)
	if err != nil {
		t.Fatal(err)
	}
	if info.Exposure != 2*time.Millisecond {
		t.Errorf("expected exposure 2ms, got %v", info.Exposure)
	}
	if info.Overhead < 0 {
		t.Errorf("expected non-negative overhead, got %v", info.Overhead)
	}
	if info.Wall < info.Exposure {
		t.Errorf("wall %v is shorter than the exposure %v", info.Wall, info.Exposure)
	}
}
