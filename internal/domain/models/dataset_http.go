package models

// Requests for the dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type CyclesRequest struct {
	ID            string `param:"id" validate:"required"`
	Offset        int    `query:"offset" default:"0" validate:"gte=0"`
	Limit         int    `query:"limit" default:"20" validate:"gte=1,lte=100"`
	IncludeSeries bool   `query:"include_series" default:"false"`
	MaxSamples    int    `query:"max_samples" default:"1000" validate:"gte=1,lte=100000"`
}

type TrendChartRequest struct {
	ID        string `param:"id" validate:"required"`
	Metric    string `query:"metric" default:"mean_voltage" validate:"oneof=mean_voltage std_voltage std_to_mean_ratio"`
	Color     string `query:"color" default:"#FF0000" validate:"hexcolor"`
	Marker    string `query:"marker" default:"o" validate:"oneof=o s ^ D x"`
	LineStyle string `query:"line_style" default:"solid" validate:"oneof=solid dashed dashdot dotted"`
}

type VoltageChartRequest struct {
	ID   string `param:"id" validate:"required"`
	From int    `query:"from" default:"1" validate:"gte=1"`
	To   int    `query:"to" default:"5" validate:"gte=1"`
}
