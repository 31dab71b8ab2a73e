package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "specsrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:             ":8000",
		Stem:             "/spectro/",
		Mock:             false,
		SDKPort:          0,
		IntegrationTimeS: 22e-6,
		Averages:         200,
		Trigger: TriggerSetup{
			Type:    "gpio",
			Pin:     17,
			Baud:    115200,
			PeriodS: 1,
		}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `specsrv exposes a synchronized spectroelectrochemistry rig over HTTP.
The potentiostat sequence raises trigger edges; each edge is answered with a
spectral measurement, and the run's records are served as CSV or FITS.

Usage:
	specsrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `specsrv is amenable to configuration via its .yml file.  For a primer on
YAML, see https://yaml.org/start.html

Keys:
- Addr      address to listen at, e.g. :8000
- Stem      URL prefix for the coordinator routes, e.g. /spectro/
- Mock      true substitutes a simulated spectrometer and trigger-friendly
            defaults for the Avantes SDK
- SDKPort   AVS_Init port argument, 0 for USB
- IntegrationTimeS, Averages
            initial measurement settings, adjustable at runtime via
            POST <Stem>configure
- Trigger:
    Type    gpio (Raspberry Pi edge detect), serial (RS-232 trigger
            repeater), or sim (software edges)
    Pin     BCM pin for gpio
    Addr    port path for serial, e.g. /dev/ttyUSB0
    Baud    baud rate for serial
    PeriodS edge period for sim

Routes under Stem: configure, run, abort, status, wavelengths, timing,
results.csv, results.fits.  While a run is in progress all mutating routes
other than abort return 423.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("specsrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	mux, err := BuildMux(c)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("now listening for requests at", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
