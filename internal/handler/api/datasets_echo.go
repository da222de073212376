package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"BattPulse/internal/domain/models"
	domrepo "BattPulse/internal/domain/repository"
	"BattPulse/internal/export"
	"BattPulse/internal/parser"
	"BattPulse/internal/service/notify"
	"BattPulse/internal/service/ratelimit"
	"BattPulse/internal/usecase"
	xhttp "BattPulse/pkg/http"
	xlogger "BattPulse/pkg/logger"
	"BattPulse/pkg/matfile"
)

// UploadLimits bounds what the upload endpoint accepts.
type UploadLimits struct {
	MaxSizeBytes int64
	Extension    string
}

// DatasetsEchoHandler exposes the dataset analysis pipeline over HTTP.
type DatasetsEchoHandler struct {
	logger     *xlogger.Logger
	analyzer   *usecase.DatasetAnalyzer
	limiter    *ratelimit.Limiter
	hub        *notify.Hub
	limits     UploadLimits
	maxSamples int
}

func NewDatasetsEchoHandler(
	logger *xlogger.Logger,
	analyzer *usecase.DatasetAnalyzer,
	limiter *ratelimit.Limiter,
	hub *notify.Hub,
	limits UploadLimits,
	maxSamples int,
) *DatasetsEchoHandler {
	return &DatasetsEchoHandler{
		logger:     logger,
		analyzer:   analyzer,
		limiter:    limiter,
		hub:        hub,
		limits:     limits,
		maxSamples: maxSamples,
	}
}

func (h *DatasetsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/datasets", h.Upload)
	g.GET("/datasets", h.List)
	g.GET("/datasets/:id", h.Get)
	g.GET("/datasets/:id/cycles", h.Cycles)
	g.GET("/datasets/:id/statistics", h.Statistics)
	g.GET("/datasets/:id/charts/trend", h.TrendChart)
	g.GET("/datasets/:id/charts/voltage", h.VoltageChart)
	g.GET("/datasets/:id/export", h.Export)
	g.DELETE("/datasets/:id", h.Delete)
	g.GET("/diagnostics", h.Diagnostics)
	g.GET("/events", h.Events)
}

// Upload accepts one multipart file field named "file", analyzes it, and
// returns the dataset summary. Re-uploading identical bytes is cheap and
// idempotent.
func (h *DatasetsEchoHandler) Upload(c echo.Context) error {
	if !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("upload rate exceeded, retry later"))
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("multipart field 'file' is required").WithError(err))
	}
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != h.limits.Extension {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unsupported file type %q, want %s", ext, h.limits.Extension))
	}
	if fh.Size > h.limits.MaxSizeBytes {
		return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError(
			fmt.Sprintf("file exceeds the %d byte limit", h.limits.MaxSizeBytes)))
	}

	src, err := fh.Open()
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("read upload").WithError(err))
	}
	defer src.Close()

	payload, err := io.ReadAll(io.LimitReader(src, h.limits.MaxSizeBytes+1))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("read upload").WithError(err))
	}
	if int64(len(payload)) > h.limits.MaxSizeBytes {
		return xhttp.AppErrorResponse(c, xhttp.PayloadTooLargeError(
			fmt.Sprintf("file exceeds the %d byte limit", h.limits.MaxSizeBytes)))
	}

	d, err := h.analyzer.Analyze(c.Request().Context(), fh.Filename, payload)
	if err != nil {
		h.logger.Error("analyze upload", xlogger.String("filename", fh.Filename), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}

	h.hub.Broadcast(notify.Event{Kind: notify.EventDatasetParsed, DatasetID: d.ID, Stem: d.Stem})
	return xhttp.CreatedResponse(c, d.Summarize(true))
}

func (h *DatasetsEchoHandler) List(c echo.Context) error {
	summaries, err := h.analyzer.List(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, summaries, int64(len(summaries)))
}

type datasetDetail struct {
	models.Summary
	Statistics []models.CycleStatistics `json:"statistics"`
}

func (h *DatasetsEchoHandler) Get(c echo.Context) error {
	d, err := h.analyzer.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}
	return xhttp.SuccessResponse(c, datasetDetail{
		Summary:    d.Summarize(true),
		Statistics: d.Statistics,
	})
}

type cycleView struct {
	Index       int                    `json:"index"`
	Type        models.CycleType       `json:"type"`
	Temperature int                    `json:"ambient_temperature"`
	Timestamp   string                 `json:"timestamp"`
	Samples     int                    `json:"samples"`
	Statistics  models.CycleStatistics `json:"statistics"`
	Series      models.SeriesData      `json:"series,omitempty"`
}

// Cycles pages through a dataset's cycles. Series payloads are opt-in and
// downsampled to max_samples per channel.
func (h *DatasetsEchoHandler) Cycles(c echo.Context) error {
	req := &models.CyclesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	d, err := h.analyzer.Get(c.Request().Context(), req.ID)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}

	total := len(d.Cycles)
	from := req.Offset
	if from > total {
		from = total
	}
	to := from + req.Limit
	if to > total {
		to = total
	}

	views := make([]cycleView, 0, to-from)
	for i := from; i < to; i++ {
		cyc := &d.Cycles[i]
		v := cycleView{
			Index:       i + 1,
			Type:        cyc.Type,
			Temperature: cyc.Temperature,
			Timestamp:   cyc.Timestamp,
			Samples:     len(cyc.Voltage()),
			Statistics:  d.Statistics[i],
		}
		if req.IncludeSeries {
			v.Series = sampleSeries(cyc.Series, req.MaxSamples)
		}
		views = append(views, v)
	}

	return xhttp.ListResponse(c, views, int64(total))
}

func (h *DatasetsEchoHandler) Statistics(c echo.Context) error {
	d, err := h.analyzer.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}
	return xhttp.ListResponse(c, d.Statistics, int64(len(d.Statistics)))
}

func (h *DatasetsEchoHandler) TrendChart(c echo.Context) error {
	req := &models.TrendChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	chart, err := h.analyzer.TrendChart(c.Request().Context(), req)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}
	return xhttp.SuccessResponse(c, chart)
}

func (h *DatasetsEchoHandler) VoltageChart(c echo.Context) error {
	req := &models.VoltageChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.To < req.From {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("'to' must not precede 'from'"))
	}

	chart, err := h.analyzer.VoltageChart(c.Request().Context(), req, h.maxSamples)
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}
	return xhttp.SuccessResponse(c, chart)
}

// Export streams the statistics TSV as a download.
func (h *DatasetsEchoHandler) Export(c echo.Context) error {
	d, err := h.analyzer.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/tab-separated-values; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.Filename(d.Stem)))
	resp.WriteHeader(http.StatusOK)

	return export.WriteStatistics(resp, d.Statistics)
}

func (h *DatasetsEchoHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.analyzer.Invalidate(c.Request().Context(), id); err != nil {
		return xhttp.AppErrorResponse(c, h.mapDatasetError(err))
	}
	h.hub.Broadcast(notify.Event{Kind: notify.EventDatasetInvalidated, DatasetID: id})
	return xhttp.NoContentResponse(c)
}

type diagnosticsView struct {
	Clients int                          `json:"websocket_clients"`
	Logs    []xlogger.AggregatedLogEntry `json:"logs"`
}

// Diagnostics reports recent warn/error logs and connection counts.
func (h *DatasetsEchoHandler) Diagnostics(c echo.Context) error {
	view := diagnosticsView{Clients: h.hub.ClientCount()}
	if col := h.logger.Collector(); col != nil {
		view.Logs = col.Snapshot()
	}
	return xhttp.SuccessResponse(c, view)
}

// Events upgrades to WebSocket and streams dataset lifecycle events.
func (h *DatasetsEchoHandler) Events(c echo.Context) error {
	return h.hub.Serve(c.Request().Context(), c.Response(), c.Request())
}

// mapDatasetError translates pipeline errors into HTTP responses. Parser
// failures are the client's fault (bad file), so they map to 422 rather
// than 500.
func (h *DatasetsEchoHandler) mapDatasetError(err error) error {
	switch {
	case errors.Is(err, domrepo.ErrDatasetNotFound):
		return xhttp.NotFoundError("dataset not found").WithError(err)
	case errors.Is(err, parser.ErrMissingVariable), errors.Is(err, parser.ErrMalformedStructure):
		return xhttp.UnprocessableError("ERR_BAD_DATASET", err.Error()).WithError(err)
	case errors.Is(err, matfile.ErrFormat):
		return xhttp.UnprocessableError("ERR_BAD_DATASET", err.Error()).WithError(err)
	}
	return err
}

// sampleSeries bounds each channel to max samples by stride.
func sampleSeries(in models.SeriesData, max int) models.SeriesData {
	out := make(models.SeriesData, len(in))
	for name, samples := range in {
		if max <= 0 || len(samples) <= max {
			cp := make([]float64, len(samples))
			copy(cp, samples)
			out[name] = cp
			continue
		}
		stride := (len(samples) + max - 1) / max
		cp := make([]float64, 0, max)
		for i := 0; i < len(samples); i += stride {
			cp = append(cp, samples[i])
		}
		out[name] = cp
	}
	return out
}
