// Package stats computes the per-cycle voltage metrics the dashboard
// reports: arithmetic mean, population standard deviation, and their
// scaled ratio.
package stats

import (
	"math"

	"BattPulse/internal/domain/models"
)

// RatioScale multiplies std/mean into the per-mille range the dashboard
// displays.
const RatioScale = 1000

// Compute derives one statistics record per cycle, in cycle order. A cycle
// with an empty voltage series yields an absent record rather than zeros.
func Compute(cycles []models.CycleRecord) []models.CycleStatistics {
	out := make([]models.CycleStatistics, len(cycles))
	for i := range cycles {
		out[i] = ForSeries(cycles[i].Voltage())
	}
	return out
}

// ForSeries computes the metrics of a single voltage series.
func ForSeries(samples []float64) models.CycleStatistics {
	if len(samples) == 0 {
		return models.CycleStatistics{}
	}

	mean := Mean(samples)
	std := Std(samples, mean)
	ratio := 0.0
	if mean != 0 {
		ratio = std * RatioScale / mean
	}

	return models.CycleStatistics{
		MeanVoltage:    &mean,
		StdVoltage:     &std,
		StdToMeanRatio: &ratio,
	}
}

// Mean returns the arithmetic mean. Callers guarantee a non-empty slice.
func Mean(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// Std returns the population standard deviation (divisor N, not N-1)
// around the given mean.
func Std(samples []float64, mean float64) float64 {
	var sum float64
	for _, v := range samples {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}
