package acquire

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/astrogo/fitsio"
)

// timeFormat is RFC3339 with sub-millisecond precision; trigger/acquisition
// spacing is often sub-second
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// EncodeCSV writes the result as a flat table, one row per record.  The
// leading columns carry the correlation bookkeeping; the remainder is one
// intensity column per wavelength, labeled in nm.
func (r Result) EncodeCSV(w io.Writer) error {
	if len(r.Records) == 0 {
		return fmt.Errorf("no records to encode")
	}
	wvl := r.Records[0].Sample.Wavelengths
	header := []string{"trigger_time", "acquisition_time", "latency_s",
		"integration_time_s", "averages", "correlation_warning"}
	for _, v := range wvl {
		header = append(header, strconv.FormatFloat(v, 'G', -1, 64))
	}
	w2 := bufio.NewWriter(w)
	w3 := csv.NewWriter(w2)
	err := w3.Write(header)
	if err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range r.Records {
		row = row[:0]
		row = append(row,
			rec.TriggerTime.Format(timeFormat),
			rec.Sample.Timestamp.Format(timeFormat),
			strconv.FormatFloat(rec.Latency.Seconds(), 'G', -1, 64),
			strconv.FormatFloat(rec.Sample.IntegrationTime.Seconds(), 'G', -1, 64),
			strconv.Itoa(rec.Sample.Averages),
			strconv.FormatBool(rec.CorrelationWarning))
		for _, v := range rec.Sample.Intensities {
			row = append(row, strconv.FormatFloat(v, 'G', -1, 64))
		}
		err = w3.Write(row)
		if err != nil {
			return err
		}
	}
	w3.Flush()
	return w2.Flush()
}

// WriteFITS streams the result to w as a FITS file.  The primary HDU is a
// 2D float64 image, wavelength along the first axis and record index along
// the second, with run metadata in the header.  Extra cards from the caller
// are appended ahead of the run metadata.
func WriteFITS(w io.Writer, metadata []fitsio.Card, r Result) error {
	if len(r.Records) == 0 {
		return fmt.Errorf("no records to encode")
	}
	npx := len(r.Records[0].Sample.Wavelengths)
	set := r.Records[0].Sample
	metadata = append(metadata,
		fitsio.Card{Name: "NRECORDS", Value: len(r.Records), Comment: "synchronized records in this run"},
		fitsio.Card{Name: "NMISSED", Value: r.Missed, Comment: "trigger waits that timed out"},
		fitsio.Card{Name: "NWARN", Value: r.Warnings, Comment: "records with correlation warnings"},
		fitsio.Card{Name: "RUNSTAT", Value: r.Status.String(), Comment: "terminal run status"},
		fitsio.Card{Name: "ITIME", Value: set.IntegrationTime.Seconds(), Comment: "integration time per scan [s]"},
		fitsio.Card{Name: "NAVG", Value: set.Averages, Comment: "scans averaged per spectrum"},
		fitsio.Card{Name: "WVLMIN", Value: set.Wavelengths[0], Comment: "first pixel wavelength [nm]"},
		fitsio.Card{Name: "WVLMAX", Value: set.Wavelengths[npx-1], Comment: "last pixel wavelength [nm]"})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{npx, len(r.Records)}
	im := fitsio.NewImage(-64, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}
	buf := make([]float64, 0, npx*len(r.Records))
	for _, rec := range r.Records {
		buf = append(buf, rec.Sample.Intensities...)
	}
	err = im.Write(&buf)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// Latencies returns the latency of each record in seconds, in order
func (r Result) Latencies() []float64 {
	out := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Latency.Seconds()
	}
	return out
}

// Span returns the wall-clock duration from the first trigger edge to the
// last acquisition timestamp, or zero if there are fewer than two records
func (r Result) Span() time.Duration {
	if len(r.Records) < 2 {
		return 0
	}
	first := r.Records[0].TriggerTime
	last := r.Records[len(r.Records)-1].Sample.Timestamp
	return last.Sub(first)
}
