// Package charts builds renderable chart descriptions from parsed
// datasets. Drawing happens client-side; this package only shapes data
// and labels.
package charts

import (
	"fmt"

	"BattPulse/internal/domain/models"
)

// Metric display titles for the trend chart y axis.
var metricTitles = map[string]string{
	models.MetricMeanVoltage:    "Mean Voltage (V)",
	models.MetricStdVoltage:     "Voltage Std Dev (V)",
	models.MetricStdToMeanRatio: "Std/Mean Ratio (x1000)",
}

// Trend charts one statistics metric across cycle numbers. Cycles with
// absent statistics appear as nil points so the x axis stays aligned with
// cycle numbering.
func Trend(d *models.Dataset, req *models.TrendChartRequest) *models.Chart {
	series := models.ChartSeries{
		Name: req.Metric,
		X:    make([]float64, len(d.Statistics)),
		Y:    make([]*float64, len(d.Statistics)),
	}
	for i, rec := range d.Statistics {
		series.X[i] = float64(i + 1)
		series.Y[i] = rec.MetricValue(req.Metric)
	}

	return &models.Chart{
		Title:      fmt.Sprintf("%s per Discharge Cycle", metricTitles[req.Metric]),
		XAxisTitle: "Cycle Number",
		YAxisTitle: metricTitles[req.Metric],
		Style: &models.ChartStyle{
			Color:     req.Color,
			Marker:    req.Marker,
			LineStyle: req.LineStyle,
		},
		Series: []models.ChartSeries{series},
	}
}

// VoltageCurves overlays the voltage-vs-time traces of the requested cycle
// range. Cycle numbers are 1-based; numbers outside the dataset are
// skipped rather than erroring, so a fixed default range works for every
// dataset size. maxSamples > 0 downsamples each trace by stride to bound
// payload size.
func VoltageCurves(d *models.Dataset, from, to, maxSamples int) *models.Chart {
	chart := &models.Chart{
		Title:      "Voltage During Discharge",
		XAxisTitle: "Time (s)",
		YAxisTitle: "Voltage (V)",
		Series:     []models.ChartSeries{},
	}

	for n := from; n <= to; n++ {
		idx := n - 1
		if idx < 0 || idx >= len(d.Cycles) {
			continue
		}
		c := &d.Cycles[idx]
		x, y := downsample(c.Time(), c.Voltage(), maxSamples)
		chart.Series = append(chart.Series, models.ChartSeries{
			Name: fmt.Sprintf("Cycle %d", n),
			X:    x,
			Y:    y,
		})
	}

	return chart
}

// downsample pairs time and voltage samples, dropping by stride when the
// trace exceeds the limit. Channels of a cycle share length by
// construction, but the shorter one wins defensively.
func downsample(times, volts []float64, maxSamples int) ([]float64, []*float64) {
	n := len(times)
	if len(volts) < n {
		n = len(volts)
	}

	stride := 1
	if maxSamples > 0 && n > maxSamples {
		stride = (n + maxSamples - 1) / maxSamples
	}

	x := make([]float64, 0, n/stride+1)
	y := make([]*float64, 0, n/stride+1)
	for i := 0; i < n; i += stride {
		v := volts[i]
		x = append(x, times[i])
		y = append(y, &v)
	}
	return x, y
}
