// Command specacq runs one synchronized acquisition from the terminal.
//
// It owns the spectrometer and trigger source for the duration of the run,
// shows a spinner with live progress, and writes the records to CSV and
// optionally FITS.  Ctrl-C requests a cooperative abort; whatever has been
// collected is still written out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/theckman/yacspin"

	"github.com/waldowlab/specsync/acquire"
	"github.com/waldowlab/specsync/avantes"
	"github.com/waldowlab/specsync/spectrometer"
	"github.com/waldowlab/specsync/trigger"
	"github.com/waldowlab/specsync/util"
)

func buildTrigger(kind string, pin int, addr string, baud int, period float64) (trigger.Trigger, error) {
	switch kind {
	case "gpio":
		return trigger.NewGPIO(pin)
	case "serial":
		return trigger.NewSerialRepeater(addr, baud)
	case "sim":
		return trigger.NewSim(util.SecsToDuration(period)), nil
	default:
		return nil, fmt.Errorf("unknown trigger type %q, want gpio, serial, or sim", kind)
	}
}

func main() {
	var (
		count    = flag.Int("count", 10, "number of trigger edges expected")
		timeoutS = flag.Float64("timeout", 2.0, "per-edge wait timeout in seconds")
		itimeS   = flag.Float64("itime", 22e-6, "integration time per scan in seconds")
		averages = flag.Int("avg", 200, "scans averaged per spectrum")
		outCSV   = flag.String("out", "run.csv", "CSV output path")
		outFITS  = flag.String("fits", "", "FITS output path, empty to skip")
		mock     = flag.Bool("mock", false, "use a simulated spectrometer and trigger")
		timing   = flag.Bool("timing", false, "report measurement overhead before the run")

		trigKind   = flag.String("trigger", "gpio", "trigger source: gpio, serial, or sim")
		trigPin    = flag.Int("pin", 17, "BCM pin for the gpio trigger")
		trigAddr   = flag.String("port", "/dev/ttyUSB0", "port path for the serial trigger")
		trigBaud   = flag.Int("baud", 115200, "baud rate for the serial trigger")
		trigPeriod = flag.Float64("period", 1.0, "edge period in seconds for the sim trigger")
	)
	flag.Parse()

	var (
		spec spectrometer.Spectrometer
		trig trigger.Trigger
		err  error
	)
	if *mock {
		spec = spectrometer.NewSim()
		trig = trigger.NewSim(util.SecsToDuration(*trigPeriod))
	} else {
		dev, err := avantes.Open(0)
		if err != nil {
			log.Fatal(err)
		}
		defer dev.Close()
		log.Printf("activated AvaSpec s/n %s, %d pixels", dev.SerialNumber(), dev.Pixels())
		spec = dev
		trig, err = buildTrigger(*trigKind, *trigPin, *trigAddr, *trigBaud, *trigPeriod)
		if err != nil {
			log.Fatal(err)
		}
	}

	set := spectrometer.Settings{
		IntegrationTime: util.SecsToDuration(*itimeS),
		Averages:        *averages,
	}
	coord := acquire.New(spec, trig)
	err = coord.Configure(set)
	if err != nil {
		log.Fatal(err)
	}

	if *timing {
		_, info, err := spectrometer.MeasureTiming(spec, set)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("measurement wall %v, exposure %v, overhead %v\n",
			info.Wall, info.Exposure, info.Overhead)
	}

	// Ctrl-C aborts cooperatively; the current measurement finishes and
	// the partial run is written out
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	go func() {
		<-sigs
		coord.Abort()
	}()

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[11],
		Suffix:          " acquiring",
		Message:         fmt.Sprintf("waiting on %d edges", *count),
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
		StopFailMessage: "run did not complete",
	})
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	res, runErr := coord.Run(*count, util.SecsToDuration(*timeoutS))
	if runErr != nil {
		spinner.StopFail()
	} else {
		spinner.Stop()
	}

	fmt.Printf("status %s: %d records, %d missed, %d warnings, span %v\n",
		res.Status, len(res.Records), res.Missed, res.Warnings, res.Span())
	if runErr != nil {
		log.Println(runErr)
	}
	if len(res.Records) == 0 {
		os.Exit(1)
	}

	f, err := os.Create(*outCSV)
	if err != nil {
		log.Fatal(err)
	}
	err = res.EncodeCSV(f)
	f.Close()
	if err != nil {
		log.Fatal(err)
	}
	log.Println("wrote", *outCSV)

	if *outFITS != "" {
		f, err := os.Create(*outFITS)
		if err != nil {
			log.Fatal(err)
		}
		err = acquire.WriteFITS(f, nil, res)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
		log.Println("wrote", *outFITS)
	}
}
