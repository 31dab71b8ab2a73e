package acquire_test

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/waldowlab/specsync/acquire"
	"github.com/waldowlab/specsync/spectrometer"
)

func twoRecordResult() acquire.Result {
	base := time.Date(2025, 7, 2, 10, 0, 0, 0, time.UTC)
	mkSample := func(t time.Time, intens []float64) spectrometer.Sample {
		return spectrometer.Sample{
			Timestamp:       t,
			Wavelengths:     []float64{400, 500, 600},
			Intensities:     intens,
			IntegrationTime: 22 * time.Microsecond,
			Averages:        200,
		}
	}
	return acquire.Result{
		Records: []acquire.Record{
			{
				TriggerTime: base,
				Sample:      mkSample(base.Add(5*time.Millisecond), []float64{1, 2, 1}),
				Latency:     5 * time.Millisecond,
			},
			{
				TriggerTime:        base.Add(time.Second),
				Sample:             mkSample(base.Add(time.Second - time.Millisecond), []float64{3, 4, 3}),
				Latency:            -time.Millisecond,
				CorrelationWarning: true,
			},
		},
		Missed:   1,
		Warnings: 1,
		Status:   acquire.Completed,
	}
}

func TestEncodeCSVShape(t *testing.T) {
	res := twoRecordResult()
	buf := &bytes.Buffer{}
	err := res.EncodeCSV(buf)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	rows, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	wantCols := 6 + 3
	for i, row := range rows {
		if len(row) != wantCols {
			t.Errorf("row %d has %d columns, expected %d", i, len(row), wantCols)
		}
	}
	if rows[0][0] != "trigger_time" || rows[0][6] != "400" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][5] != "false" || rows[2][5] != "true" {
		t.Errorf("correlation warning column wrong: %v %v", rows[1][5], rows[2][5])
	}
	lat, err := strconv.ParseFloat(rows[2][2], 64)
	if err != nil || lat >= 0 {
		t.Errorf("expected negative latency in row 2, got %q", rows[2][2])
	}
}

func TestEncodeCSVEmptyResultErrors(t *testing.T) {
	res := acquire.Result{}
	err := res.EncodeCSV(&bytes.Buffer{})
	if err == nil {
		t.Error("expected an error encoding an empty result")
	}
}

func TestWriteFITSHeaderAndShape(t *testing.T) {
	res := twoRecordResult()
	buf := &bytes.Buffer{}
	err := acquire.WriteFITS(buf, nil, res)
	if err != nil {
		t.Fatalf("fits write failed: %v", err)
	}
	b := buf.Bytes()
	if len(b) == 0 || !bytes.HasPrefix(b, []byte("SIMPLE")) {
		t.Fatalf("output does not look like a FITS file")
	}
	if !bytes.Contains(b[:2880], []byte("NRECORDS")) {
		t.Error("expected NRECORDS card in primary header")
	}
}

func TestResultSpan(t *testing.T) {
	res := twoRecordResult()
	want := res.Records[1].Sample.Timestamp.Sub(res.Records[0].TriggerTime)
	if got := res.Span(); got != want {
		t.Errorf("span %v != expected %v", got, want)
	}
	if (acquire.Result{}).Span() != 0 {
		t.Error("empty result should have zero span")
	}
}
