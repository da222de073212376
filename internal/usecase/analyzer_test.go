package usecase_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"BattPulse/internal/domain/models"
	domrepo "BattPulse/internal/domain/repository"
	"BattPulse/internal/repository"
	"BattPulse/internal/usecase"
	"BattPulse/pkg/cache"
	"BattPulse/pkg/logger"
	"BattPulse/pkg/matfile/matfiletest"
)

type recordingMetrics struct {
	parsed  map[string]int
	errors  map[string]int
	lookups map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		parsed:  map[string]int{},
		errors:  map[string]int{},
		lookups: map[string]int{},
	}
}

func (m *recordingMetrics) RecordDatasetParsed(outcome string)   { m.parsed[outcome]++ }
func (m *recordingMetrics) RecordError(kind string)              { m.errors[kind]++ }
func (m *recordingMetrics) RecordCyclesRetained(n int)           {}
func (m *recordingMetrics) RecordLatency(op string, sec float64) {}
func (m *recordingMetrics) RecordCacheLookup(result string)      { m.lookups[result]++ }

var _ domrepo.Metrics = (*recordingMetrics)(nil)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newAnalyzer(t *testing.T) (*usecase.DatasetAnalyzer, *recordingMetrics) {
	t.Helper()
	m := newRecordingMetrics()
	a := usecase.NewDatasetAnalyzer(
		repository.NewMemoryDatasetStore(),
		cache.NewMemoryCache(),
		m,
		testLogger(t),
		time.Minute,
	)
	return a, m
}

func batteryUpload() []byte {
	cycle := matfiletest.Cycle{
		Type:         "discharge",
		Temp:         24,
		Time:         []float64{2008, 4, 2, 15, 25, 41},
		ChannelOrder: []string{"Voltage_measured", "Current_measured", "Temperature_measured", "Time"},
		Channels: map[string][]float64{
			"Voltage_measured":     {4.2, 3.9, 3.5},
			"Current_measured":     {-2, -2, -2},
			"Temperature_measured": {24.5, 25.1, 25.8},
			"Time":                 {0, 10, 20},
		},
	}
	return matfiletest.BatteryFile("B0005", []matfiletest.Cycle{cycle})
}

func TestAnalyzeAndGet(t *testing.T) {
	ctx := context.Background()
	a, m := newAnalyzer(t)

	d, err := a.Analyze(ctx, "B0005.mat", batteryUpload())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if d.Stem != "B0005" || len(d.Cycles) != 1 || len(d.Statistics) != 1 {
		t.Fatalf("unexpected dataset: stem=%q cycles=%d stats=%d", d.Stem, len(d.Cycles), len(d.Statistics))
	}
	if d.Statistics[0].Absent() {
		t.Fatalf("expected computed statistics")
	}
	if m.parsed["ok"] != 1 || m.lookups["miss"] != 1 {
		t.Fatalf("metrics: parsed=%v lookups=%v", m.parsed, m.lookups)
	}

	got, err := a.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != d.ID {
		t.Fatalf("id mismatch")
	}
}

func TestAnalyzeReuploadHitsCache(t *testing.T) {
	ctx := context.Background()
	a, m := newAnalyzer(t)
	payload := batteryUpload()

	first, err := a.Analyze(ctx, "B0005.mat", payload)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	second, err := a.Analyze(ctx, "B0005.mat", payload)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("same bytes yielded different ids %q %q", first.ID, second.ID)
	}
	if m.lookups["hit"] != 1 || m.parsed["ok"] != 1 {
		t.Fatalf("re-upload must not re-parse: lookups=%v parsed=%v", m.lookups, m.parsed)
	}

	list, err := a.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("re-upload must not duplicate the dataset, got %d entries", len(list))
	}
	if !list[0].Cached {
		t.Fatalf("listing must report the cached parse")
	}
}

func TestAnalyzeBadPayload(t *testing.T) {
	ctx := context.Background()
	a, m := newAnalyzer(t)

	if _, err := a.Analyze(ctx, "junk.mat", []byte("not a mat file")); err == nil {
		t.Fatalf("expected decode error")
	}
	if m.parsed["failed"] != 1 || m.errors["decode"] != 1 {
		t.Fatalf("metrics: parsed=%v errors=%v", m.parsed, m.errors)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	a, _ := newAnalyzer(t)
	payload := batteryUpload()

	d, err := a.Analyze(ctx, "B0005.mat", payload)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if err := a.Invalidate(ctx, d.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := a.Get(ctx, d.ID); err != domrepo.ErrDatasetNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := a.Invalidate(ctx, d.ID); err != domrepo.ErrDatasetNotFound {
		t.Fatalf("double invalidate: %v", err)
	}
}

func TestExportStatistics(t *testing.T) {
	ctx := context.Background()
	a, _ := newAnalyzer(t)

	d, err := a.Analyze(ctx, "B0005.mat", batteryUpload())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var buf bytes.Buffer
	name, err := a.ExportStatistics(ctx, d.ID, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if name != "B0005_statistics.tsv" {
		t.Fatalf("filename = %q", name)
	}
	if !strings.HasPrefix(buf.String(), "cycle_index\t") {
		t.Fatalf("missing header: %q", buf.String())
	}
}

func TestCharts(t *testing.T) {
	ctx := context.Background()
	a, _ := newAnalyzer(t)

	d, err := a.Analyze(ctx, "B0005.mat", batteryUpload())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	trend, err := a.TrendChart(ctx, &models.TrendChartRequest{
		ID: d.ID, Metric: models.MetricMeanVoltage, Color: "#FF0000", Marker: "o", LineStyle: "solid",
	})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Series) != 1 || len(trend.Series[0].Y) != 1 {
		t.Fatalf("unexpected trend shape: %+v", trend)
	}

	volt, err := a.VoltageChart(ctx, &models.VoltageChartRequest{ID: d.ID, From: 1, To: 5}, 1000)
	if err != nil {
		t.Fatalf("voltage: %v", err)
	}
	if len(volt.Series) != 1 || volt.Series[0].Name != "Cycle 1" {
		t.Fatalf("unexpected voltage chart: %+v", volt)
	}

	if _, err := a.TrendChart(ctx, &models.TrendChartRequest{ID: "missing", Metric: models.MetricMeanVoltage}); err != domrepo.ErrDatasetNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
