package main

import (
	"fmt"
	"log"

	"github.com/waldowlab/specsync/acquire"
	"github.com/waldowlab/specsync/avantes"
	"github.com/waldowlab/specsync/server/middleware/locker"
	"github.com/waldowlab/specsync/spectrometer"
	"github.com/waldowlab/specsync/trigger"
	"github.com/waldowlab/specsync/util"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"goji.io"
)

// TriggerSetup selects and parameterizes the trigger source
type TriggerSetup struct {
	// Type is one of gpio, serial, sim
	Type string `koanf:"Type" yaml:"Type"`

	// Pin is the BCM pin number for gpio sources
	Pin int `koanf:"Pin" yaml:"Pin"`

	// Addr is the serial port path for serial repeater sources
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Baud is the serial baud rate
	Baud int `koanf:"Baud" yaml:"Baud"`

	// PeriodS is the edge period in seconds for sim sources
	PeriodS float64 `koanf:"PeriodS" yaml:"PeriodS"`
}

// Config is a struct that holds the initialization parameters for the
// server.  It is populated from defaults overlaid by the yaml config file.
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"Addr" yaml:"Addr"`

	// Stem is the URL prefix the coordinator routes are served under
	Stem string `koanf:"Stem" yaml:"Stem"`

	// Mock substitutes a simulated spectrometer for the Avantes SDK
	Mock bool `koanf:"Mock" yaml:"Mock"`

	// SDKPort is the port argument to AVS_Init; 0 selects USB
	SDKPort int `koanf:"SDKPort" yaml:"SDKPort"`

	// IntegrationTimeS is the initial per-scan exposure in seconds
	IntegrationTimeS float64 `koanf:"IntegrationTimeS" yaml:"IntegrationTimeS"`

	// Averages is the initial number of scans averaged per spectrum
	Averages int `koanf:"Averages" yaml:"Averages"`

	Trigger TriggerSetup `koanf:"Trigger" yaml:"Trigger"`
}

// buildTrigger constructs the trigger source named by the config
func buildTrigger(c Config) (trigger.Trigger, error) {
	switch c.Trigger.Type {
	case "gpio":
		return trigger.NewGPIO(c.Trigger.Pin)
	case "serial":
		return trigger.NewSerialRepeater(c.Trigger.Addr, c.Trigger.Baud)
	case "sim":
		return trigger.NewSim(util.SecsToDuration(c.Trigger.PeriodS)), nil
	default:
		return nil, fmt.Errorf("unknown trigger type %q, want gpio, serial, or sim", c.Trigger.Type)
	}
}

// BuildMux constructs the devices and returns a router with the
// coordinator's routes bound
func BuildMux(c Config) (chi.Router, error) {
	var (
		spec spectrometer.Spectrometer
		trig trigger.Trigger
	)
	if c.Mock {
		log.Println("mock mode, using simulated spectrometer and trigger")
		spec = spectrometer.NewSim()
		trig = trigger.NewSim(util.SecsToDuration(c.Trigger.PeriodS))
	} else {
		dev, err := avantes.Open(c.SDKPort)
		if err != nil {
			return nil, err
		}
		log.Printf("activated AvaSpec s/n %s, %d pixels", dev.SerialNumber(), dev.Pixels())
		spec = dev
		trig, err = buildTrigger(c)
		if err != nil {
			return nil, err
		}
	}
	coord := acquire.New(spec, trig)
	err := coord.Configure(spectrometer.Settings{
		IntegrationTime: util.SecsToDuration(c.IntegrationTimeS),
		Averages:        c.Averages,
	})
	if err != nil {
		return nil, err
	}
	httper := acquire.NewHTTPWrapper(c.Stem, coord)
	locker.Inject(httper, httper.Lock)

	gmux := goji.NewMux()
	gmux.Use(httper.Lock.Check)
	httper.RT().Bind(gmux)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Use(middleware.Recoverer)
	root.Mount("/", gmux)
	return root, nil
}
