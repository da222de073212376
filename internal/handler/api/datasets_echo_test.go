package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"BattPulse/internal/handler/api"
	"BattPulse/internal/repository"
	"BattPulse/internal/service/notify"
	"BattPulse/internal/service/ratelimit"
	"BattPulse/internal/usecase"
	"BattPulse/pkg/cache"
	"BattPulse/pkg/logger"
	"BattPulse/pkg/matfile/matfiletest"
)

type noopMetrics struct{}

func (noopMetrics) RecordDatasetParsed(string)    {}
func (noopMetrics) RecordError(string)            {}
func (noopMetrics) RecordCyclesRetained(int)      {}
func (noopMetrics) RecordLatency(string, float64) {}
func (noopMetrics) RecordCacheLookup(string)      {}

func newTestServer(t *testing.T, rateCapacity float64) *echo.Echo {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	analyzer := usecase.NewDatasetAnalyzer(
		repository.NewMemoryDatasetStore(),
		cache.NewMemoryCache(),
		noopMetrics{},
		log,
		time.Minute,
	)

	h := api.NewDatasetsEchoHandler(
		log,
		analyzer,
		ratelimit.New(rateCapacity, 0.0001),
		notify.NewHub(log),
		api.UploadLimits{MaxSizeBytes: 1 << 20, Extension: ".mat"},
		1000,
	)

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func batteryPayload() []byte {
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

func multipartUpload(t *testing.T, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func doUpload(t *testing.T, e *echo.Echo, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ctype := multipartUpload(t, filename, payload)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func uploadDataset(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := doUpload(t, e, "B0005.mat", batteryPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusCreated {
		t.Fatalf("envelope status %d", env.Status)
	}
	var summary struct {
		ID         string `json:"id"`
		Stem       string `json:"stem"`
		CycleCount int    `json:"cycle_count"`
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Stem != "B0005" || summary.CycleCount != 1 || summary.ID == "" {
		t.Fatalf("unexpected summary %+v", summary)
	}
	return summary.ID
}

func TestUploadAndGet(t *testing.T) {
	e := newTestServer(t, 10)
	id := uploadDataset(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	var detail struct {
		ID         string `json:"id"`
		Statistics []struct {
			MeanVoltage *float64 `json:"mean_voltage"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.ID != id || len(detail.Statistics) != 1 || detail.Statistics[0].MeanVoltage == nil {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	e := newTestServer(t, 10)
	rec := doUpload(t, e, "B0005.csv", batteryPayload())
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 envelope, got %d", env.Status)
	}
}

func TestUploadRejectsCorruptFile(t *testing.T) {
	e := newTestServer(t, 10)
	rec := doUpload(t, e, "junk.mat", []byte("definitely not a mat container"))
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 envelope, got %d: %s", env.Status, rec.Body.String())
	}
	if !strings.Contains(string(env.Data), "ERR_BAD_DATASET") {
		t.Fatalf("expected ERR_BAD_DATASET code: %s", env.Data)
	}
}

func TestUploadRateLimited(t *testing.T) {
	e := newTestServer(t, 1)
	if rec := doUpload(t, e, "B0005.mat", batteryPayload()); rec.Code != http.StatusOK {
		t.Fatalf("first upload status %d", rec.Code)
	}
	rec := doUpload(t, e, "B0005.mat", batteryPayload())
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 envelope, got %d", env.Status)
	}
}

func TestListAndDelete(t *testing.T) {
	e := newTestServer(t, 10)
	id := uploadDataset(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	var list struct {
		Rows  []json.RawMessage `json:"rows"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || len(list.Rows) != 1 {
		t.Fatalf("unexpected listing %+v", list)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/datasets/"+id, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/datasets/"+id, nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env = decodeEnvelope(t, rec)
	if env.Status != http.StatusNotFound {
		t.Fatalf("expected 404 envelope after delete, got %d", env.Status)
	}
}

func TestCyclesPagination(t *testing.T) {
	e := newTestServer(t, 10)
	id := uploadDataset(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/cycles?limit=10&include_series=true", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	var list struct {
		Rows []struct {
			Index   int                  `json:"index"`
			Samples int                  `json:"samples"`
			Series  map[string][]float64 `json:"series"`
		} `json:"rows"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode cycles: %v", err)
	}
	if list.Total != 1 || len(list.Rows) != 1 {
		t.Fatalf("unexpected cycle list %+v", list)
	}
	row := list.Rows[0]
	if row.Index != 1 || row.Samples != 3 {
		t.Fatalf("unexpected row %+v", row)
	}
	if got := row.Series["Voltage_measured"]; len(got) != 3 || got[0] != 4.2 {
		t.Fatalf("series not included: %v", got)
	}
}

func TestTrendChartValidation(t *testing.T) {
	e := newTestServer(t, 10)
	id := uploadDataset(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/charts/trend?metric=bogus", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad metric, got %d", env.Status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/charts/trend?metric=std_voltage&color=%2300FF00", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env = decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("trend status %d: %s", env.Status, rec.Body.String())
	}
	var chart struct {
		Style  *struct{ Color string } `json:"style"`
		Series []struct {
			Y []*float64 `json:"y"`
		} `json:"series"`
	}
	if err := json.Unmarshal(env.Data, &chart); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if chart.Style == nil || chart.Style.Color != "#00FF00" {
		t.Fatalf("style not applied: %+v", chart.Style)
	}
	if len(chart.Series) != 1 || len(chart.Series[0].Y) != 1 {
		t.Fatalf("unexpected series shape: %+v", chart.Series)
	}
}

func TestVoltageChartRange(t *testing.T) {
	e := newTestServer(t, 10)
	id := uploadDataset(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/charts/voltage?from=3&to=1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("inverted range must fail, got %d", env.Status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/charts/voltage?from=1&to=5", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env = decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("voltage status %d", env.Status)
	}
}

func TestExportDownload(t *testing.T) {
	e := newTestServer(t, 10)
	id := uploadDataset(t, e)

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/"+id+"/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status %d", rec.Code)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "B0005_statistics.tsv") {
		t.Fatalf("content disposition %q", cd)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "cycle_index\tmean_voltage\tstd_voltage\tstd_to_mean_ratio\n") {
		t.Fatalf("unexpected export body: %q", body)
	}
	if lines := strings.Count(strings.TrimRight(body, "\n"), "\n"); lines != 1 {
		t.Fatalf("expected one data row, got %d", lines)
	}
}

func TestDiagnostics(t *testing.T) {
	e := newTestServer(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("diagnostics status %d", env.Status)
	}
	var view struct {
		Clients int `json:"websocket_clients"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if view.Clients != 0 {
		t.Fatalf("expected no websocket clients, got %d", view.Clients)
	}
}
