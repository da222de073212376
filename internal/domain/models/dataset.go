package models

import "time"

// CycleType classifies a battery test cycle.
type CycleType string

const (
	CycleDischarge CycleType = "discharge"
	CycleCharge    CycleType = "charge"
	CycleOther     CycleType = "other"
)

// ParseCycleType maps the raw cycle tag from a dataset file.
func ParseCycleType(s string) CycleType {
	switch s {
	case "discharge":
		return CycleDischarge
	case "charge":
		return CycleCharge
	}
	return CycleOther
}

// SeriesData maps a channel name to its ordered samples. Sample i of every
// channel belongs to the same instant.
type SeriesData map[string][]float64

// Required channel names every battery cycle must carry.
const (
	ChannelTime        = "Time"
	ChannelVoltage     = "Voltage_measured"
	ChannelCurrent     = "Current_measured"
	ChannelTemperature = "Temperature_measured"
)

// RequiredChannels returns the minimal channel set a cycle must provide.
func RequiredChannels() []string {
	return []string{ChannelTime, ChannelVoltage, ChannelCurrent, ChannelTemperature}
}

// CycleRecord is one retained discharge cycle. Immutable after parse.
type CycleRecord struct {
	Type        CycleType  `json:"type"`
	Temperature int        `json:"ambient_temperature"`
	Timestamp   string     `json:"timestamp"`
	Series      SeriesData `json:"series"`
}

// Voltage returns the measured voltage channel.
func (c *CycleRecord) Voltage() []float64 {
	return c.Series[ChannelVoltage]
}

// Time returns the elapsed-time channel.
func (c *CycleRecord) Time() []float64 {
	return c.Series[ChannelTime]
}

// CycleStatistics holds the per-cycle voltage metrics. Nil pointers mean
// the cycle had an empty voltage series ("no data", distinct from zero).
type CycleStatistics struct {
	MeanVoltage    *float64 `json:"mean_voltage"`
	StdVoltage     *float64 `json:"std_voltage"`
	StdToMeanRatio *float64 `json:"std_to_mean_ratio"`
}

// Absent reports whether the record carries no metrics.
func (s CycleStatistics) Absent() bool {
	return s.MeanVoltage == nil && s.StdVoltage == nil && s.StdToMeanRatio == nil
}

// Metric names accepted by the trend chart and exports.
const (
	MetricMeanVoltage    = "mean_voltage"
	MetricStdVoltage     = "std_voltage"
	MetricStdToMeanRatio = "std_to_mean_ratio"
)

// MetricValue selects one metric from the record; nil when absent.
func (s CycleStatistics) MetricValue(metric string) *float64 {
	switch metric {
	case MetricMeanVoltage:
		return s.MeanVoltage
	case MetricStdVoltage:
		return s.StdVoltage
	case MetricStdToMeanRatio:
		return s.StdToMeanRatio
	}
	return nil
}

// Dataset is one parsed upload retained for the session.
type Dataset struct {
	ID         string            `json:"id"`
	Stem       string            `json:"stem"`
	ContentKey string            `json:"content_key"`
	Cycles     []CycleRecord     `json:"cycles"`
	Statistics []CycleStatistics `json:"statistics"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

// Summary is the lightweight listing view of a dataset.
type Summary struct {
	ID         string    `json:"id"`
	Stem       string    `json:"stem"`
	CycleCount int       `json:"cycle_count"`
	UploadedAt time.Time `json:"uploaded_at"`
	Cached     bool      `json:"cached"`
}

// Summarize builds the listing view.
func (d *Dataset) Summarize(cached bool) Summary {
	return Summary{
		ID:         d.ID,
		Stem:       d.Stem,
		CycleCount: len(d.Cycles),
		UploadedAt: d.UploadedAt,
		Cached:     cached,
	}
}
