package export_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"BattPulse/internal/domain/models"
	"BattPulse/internal/export"
)

func f(v float64) *float64 { return &v }

func TestWriteStatistics(t *testing.T) {
	records := []models.CycleStatistics{
		{MeanVoltage: f(3.5), StdVoltage: f(0.25), StdToMeanRatio: f(71.42857142857143)},
		{},
	}

	var buf bytes.Buffer
	if err := export.WriteStatistics(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "cycle_index\tmean_voltage\tstd_voltage\tstd_to_mean_ratio" {
		t.Fatalf("bad header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1\t3.5\t0.25\t") {
		t.Fatalf("bad first row: %q", lines[1])
	}
	if lines[2] != "2\tnan\tnan\tnan" {
		t.Fatalf("absent record must export nan tokens: %q", lines[2])
	}
}

func TestReadStatisticsRoundTrip(t *testing.T) {
	records := []models.CycleStatistics{
		{MeanVoltage: f(2), StdVoltage: f(1), StdToMeanRatio: f(500)},
		{},
		{MeanVoltage: f(3.987654321), StdVoltage: f(0.001), StdToMeanRatio: f(0.2508)},
	}

	var buf bytes.Buffer
	if err := export.WriteStatistics(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := export.ReadStatistics(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, records) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, records)
	}
}

func TestReadStatisticsRejectsGarbage(t *testing.T) {
	in := "cycle_index\tmean_voltage\tstd_voltage\tstd_to_mean_ratio\n1\tabc\t0\t0\n"
	if _, err := export.ReadStatistics(strings.NewReader(in)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFilename(t *testing.T) {
	if got := export.Filename("B0005"); got != "B0005_statistics.tsv" {
		t.Fatalf("Filename = %q", got)
	}
}
