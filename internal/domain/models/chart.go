package models

// ChartSeries is one labeled line within a chart.
type ChartSeries struct {
	// Name is the series display name.
	Name string `json:"name"`
	// X holds x-axis values; nil when the x axis is the 1-based index.
	X []float64 `json:"x,omitempty"`
	// Y holds y-axis values; nil entries mark absent points.
	Y []*float64 `json:"y"`
}

// ChartStyle carries the presentation options the dashboard exposes.
type ChartStyle struct {
	Color     string `json:"color"`
	Marker    string `json:"marker"`
	LineStyle string `json:"line_style"`
}

// Chart is a renderable line-chart description. The collaborator UI owns
// the actual drawing; this is data plus labels only.
type Chart struct {
	Title      string        `json:"title"`
	XAxisTitle string        `json:"x_axis_title"`
	YAxisTitle string        `json:"y_axis_title"`
	Style      *ChartStyle   `json:"style,omitempty"`
	Series     []ChartSeries `json:"series"`
}
