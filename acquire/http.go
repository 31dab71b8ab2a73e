package acquire

import (
	"encoding/json"
	"go/types"
	"net/http"
	"sync"

	"github.com/waldowlab/specsync/server"
	"github.com/waldowlab/specsync/server/middleware/locker"
	"github.com/waldowlab/specsync/spectrometer"
	"github.com/waldowlab/specsync/util"

	"goji.io/pat"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface
// RT().Bind must be called on a mux to expose it
type HTTPWrapper struct {
	// Coordinator is the underlying acquisition coordinator that is wrapped
	Coordinator *Coordinator

	// Lock bounces mutating routes while a run is in progress
	Lock *locker.Locker

	// RouteTable maps goji patterns to http handlers
	RouteTable server.RouteTable

	mu   sync.Mutex
	last *Result
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table
// pre-configured.  urlStem is prepended to each route, e.g. "/spectro/"
// yields /spectro/run and friends.
func NewHTTPWrapper(urlStem string, c *Coordinator) *HTTPWrapper {
	w := &HTTPWrapper{Coordinator: c, Lock: locker.New()}
	rt := server.RouteTable{
		pat.Post(urlStem + "configure"):   w.HTTPConfigure,
		pat.Post(urlStem + "run"):         w.HTTPRun,
		pat.Post(urlStem + "abort"):       w.HTTPAbort,
		pat.Get(urlStem + "status"):       w.HTTPStatus,
		pat.Get(urlStem + "wavelengths"):  w.HTTPWavelengths,
		pat.Get(urlStem + "timing"):       w.HTTPTiming,
		pat.Get(urlStem + "results.csv"):  w.HTTPResultsCSV,
		pat.Get(urlStem + "results.fits"): w.HTTPResultsFITS,
	}
	w.RouteTable = rt
	return w
}

// RT makes HTTPWrapper conform to server.HTTPer
func (h *HTTPWrapper) RT() server.RouteTable {
	return h.RouteTable
}

type configPayload struct {
	// IntegrationTimeS is the per-scan exposure in seconds
	IntegrationTimeS float64 `json:"integrationTimeS"`

	// Averages is the number of scans averaged per spectrum
	Averages int `json:"averages"`
}

type runPayload struct {
	// Count is the number of trigger edges expected
	Count int `json:"count"`

	// TimeoutS is the per-edge wait timeout in seconds
	TimeoutS float64 `json:"timeoutS"`
}

type runSummary struct {
	Records  int    `json:"records"`
	Missed   int    `json:"missed"`
	Warnings int    `json:"warnings"`
	Status   string `json:"status"`
}

// HTTPConfigure pushes measurement settings to the device from a JSON body
func (h *HTTPWrapper) HTTPConfigure(w http.ResponseWriter, r *http.Request) {
	p := configPayload{}
	err := json.NewDecoder(r.Body).Decode(&p)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	set := spectrometer.Settings{
		IntegrationTime: util.SecsToDuration(p.IntegrationTimeS),
		Averages:        p.Averages,
	}
	err = h.Coordinator.Configure(set)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPRun executes a synchronized acquisition and blocks until it finishes.
// The mutating routes are locked for the duration; abort and status stay
// reachable.  The response is a JSON summary; the data is fetched from the
// results routes afterward.
func (h *HTTPWrapper) HTTPRun(w http.ResponseWriter, r *http.Request) {
	p := runPayload{}
	err := json.NewDecoder(r.Body).Decode(&p)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.Lock.Lock()
	defer h.Lock.Unlock()
	res, err := h.Coordinator.Run(p.Count, util.SecsToDuration(p.TimeoutS))
	h.mu.Lock()
	h.last = &res
	h.mu.Unlock()
	if err != nil {
		// partial data, if any, remains available from the results routes
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runSummary{
		Records:  len(res.Records),
		Missed:   res.Missed,
		Warnings: res.Warnings,
		Status:   res.Status.String(),
	})
}

// HTTPAbort requests early termination of the run in progress
func (h *HTTPWrapper) HTTPAbort(w http.ResponseWriter, r *http.Request) {
	h.Coordinator.Abort()
	w.WriteHeader(http.StatusOK)
}

// HTTPStatus returns the coordinator state as JSON
func (h *HTTPWrapper) HTTPStatus(w http.ResponseWriter, r *http.Request) {
	hp := server.HumanPayload{T: types.String, String: h.Coordinator.State().String()}
	hp.EncodeAndRespond(w, r)
}

// HTTPWavelengths returns the wavelength calibration as a JSON array of f64, nm
func (h *HTTPWrapper) HTTPWavelengths(w http.ResponseWriter, r *http.Request) {
	wvl, err := h.Coordinator.spec.Wavelengths()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(wvl)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPTiming runs a single untriggered measurement and reports its
// wall-clock cost versus the configured exposure, for choosing a trigger
// timeout
func (h *HTTPWrapper) HTTPTiming(w http.ResponseWriter, r *http.Request) {
	_, info, err := spectrometer.MeasureTiming(h.Coordinator.spec, h.Coordinator.Settings())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (h *HTTPWrapper) lastResult() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// HTTPResultsCSV returns the last run's records as a flat CSV table
func (h *HTTPWrapper) HTTPResultsCSV(w http.ResponseWriter, r *http.Request) {
	res := h.lastResult()
	if res == nil {
		http.Error(w, "no completed run", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	err := res.EncodeCSV(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTTPResultsFITS returns the last run's records as a FITS image
func (h *HTTPWrapper) HTTPResultsFITS(w http.ResponseWriter, r *http.Request) {
	res := h.lastResult()
	if res == nil {
		http.Error(w, "no completed run", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/fits")
	err := WriteFITS(w, nil, *res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
