package stats_test

import (
	"math"
	"testing"

	"BattPulse/internal/domain/models"
	"BattPulse/internal/services/stats"
)

const eps = 1e-12

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= eps
}

func mustMetrics(t *testing.T, s models.CycleStatistics) (mean, std, ratio float64) {
	t.Helper()
	if s.Absent() {
		t.Fatalf("expected metrics, got absent record")
	}
	return *s.MeanVoltage, *s.StdVoltage, *s.StdToMeanRatio
}

func TestForSeriesConstant(t *testing.T) {
	mean, std, ratio := mustMetrics(t, stats.ForSeries([]float64{2, 2, 2}))
	if !closeTo(mean, 2) || !closeTo(std, 0) || !closeTo(ratio, 0) {
		t.Fatalf("got (%v, %v, %v), want (2, 0, 0)", mean, std, ratio)
	}
}

func TestForSeriesKnownVector(t *testing.T) {
	mean, std, ratio := mustMetrics(t, stats.ForSeries([]float64{1, 3}))
	if !closeTo(mean, 2) || !closeTo(std, 1) || !closeTo(ratio, 500) {
		t.Fatalf("got (%v, %v, %v), want (2, 1, 500)", mean, std, ratio)
	}
}

func TestForSeriesPopulationDivisor(t *testing.T) {
	// Population std of {1,2,3,4} is sqrt(5)/2, not the sample value.
	_, std, _ := mustMetrics(t, stats.ForSeries([]float64{1, 2, 3, 4}))
	want := math.Sqrt(5) / 2
	if !closeTo(std, want) {
		t.Fatalf("std = %v, want %v", std, want)
	}
}

func TestForSeriesZeroMean(t *testing.T) {
	mean, std, ratio := mustMetrics(t, stats.ForSeries([]float64{-1, 1}))
	if mean != 0 {
		t.Fatalf("mean = %v, want 0", mean)
	}
	if !closeTo(std, 1) {
		t.Fatalf("std = %v, want 1", std)
	}
	if ratio != 0 {
		t.Fatalf("ratio must collapse to 0 on zero mean, got %v", ratio)
	}
}

func TestForSeriesEmpty(t *testing.T) {
	if s := stats.ForSeries(nil); !s.Absent() {
		t.Fatalf("empty series must yield an absent record, got %+v", s)
	}
}

func TestComputeAlignment(t *testing.T) {
	cycles := []models.CycleRecord{
		{Series: models.SeriesData{models.ChannelVoltage: {1, 3}}},
		{Series: models.SeriesData{models.ChannelVoltage: {}}},
		{Series: models.SeriesData{models.ChannelVoltage: {2, 2, 2}}},
	}

	recs := stats.Compute(cycles)
	if len(recs) != len(cycles) {
		t.Fatalf("got %d records for %d cycles", len(recs), len(cycles))
	}
	if recs[0].Absent() || recs[2].Absent() {
		t.Fatalf("non-empty cycles must carry metrics")
	}
	if !recs[1].Absent() {
		t.Fatalf("empty cycle must stay absent, got %+v", recs[1])
	}
	if !closeTo(*recs[0].MeanVoltage, 2) || !closeTo(*recs[2].StdVoltage, 0) {
		t.Fatalf("records out of order: %+v", recs)
	}
}
