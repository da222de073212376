package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"BattPulse/internal/domain/models"
	domrepo "BattPulse/internal/domain/repository"
	"BattPulse/internal/export"
	"BattPulse/internal/parser"
	"BattPulse/internal/repository"
	"BattPulse/internal/services/charts"
	"BattPulse/internal/services/stats"
	"BattPulse/pkg/cache"
	"BattPulse/pkg/logger"
	"BattPulse/pkg/matfile"
)

// parseCachePrefix namespaces content-addressed parse results in the
// shared cache.
const parseCachePrefix = "parse"

// DatasetAnalyzer orchestrates the analysis pipeline: decode the MAT
// container, keep discharge cycles, compute voltage statistics, and
// retain the dataset for the session. Parse results are cached by content
// hash so re-uploading a file skips the decode entirely.
type DatasetAnalyzer struct {
	store    domrepo.DatasetStore
	cache    cache.Service
	metrics  domrepo.Metrics
	log      *logger.Logger
	cacheTTL time.Duration
}

// NewDatasetAnalyzer wires the analyzer.
func NewDatasetAnalyzer(store domrepo.DatasetStore, c cache.Service, m domrepo.Metrics, log *logger.Logger, cacheTTL time.Duration) *DatasetAnalyzer {
	return &DatasetAnalyzer{
		store:    store,
		cache:    c,
		metrics:  m,
		log:      log,
		cacheTTL: cacheTTL,
	}
}

// cachedParse is the cache payload: everything derived from the raw bytes.
type cachedParse struct {
	Stem       string                   `json:"stem"`
	Cycles     []models.CycleRecord     `json:"cycles"`
	Statistics []models.CycleStatistics `json:"statistics"`
}

// Analyze ingests one uploaded file and returns the retained dataset.
// The dataset id is derived from the payload, so uploading the same bytes
// twice updates the existing entry instead of duplicating it.
func (a *DatasetAnalyzer) Analyze(ctx context.Context, filename string, payload []byte) (*models.Dataset, error) {
	start := time.Now()
	stem := parser.Stem(filename)
	key := cache.ContentKey(parseCachePrefix, payload)

	var parsed cachedParse
	err := a.cache.Get(ctx, key, &parsed)
	switch {
	case err == nil:
		a.metrics.RecordCacheLookup("hit")
		a.log.Debug("parse cache hit", logger.String("stem", stem))
	case errors.Is(err, cache.ErrCacheMiss):
		a.metrics.RecordCacheLookup("miss")
		parsed, err = a.parse(stem, payload)
		if err != nil {
			a.metrics.RecordDatasetParsed("failed")
			return nil, err
		}
		a.metrics.RecordDatasetParsed("ok")
		a.metrics.RecordCyclesRetained(len(parsed.Cycles))
		if cerr := a.cache.Set(ctx, key, &parsed, a.cacheTTL); cerr != nil {
			// Cache failures degrade to re-parsing, nothing else.
			a.log.Warn("parse cache store failed", logger.Error(cerr))
		}
	default:
		a.log.Warn("parse cache read failed", logger.Error(err))
		parsed, err = a.parse(stem, payload)
		if err != nil {
			a.metrics.RecordDatasetParsed("failed")
			return nil, err
		}
		a.metrics.RecordDatasetParsed("ok")
		a.metrics.RecordCyclesRetained(len(parsed.Cycles))
	}

	d := &models.Dataset{
		ID:         repository.DatasetID(payload),
		Stem:       parsed.Stem,
		ContentKey: key,
		Cycles:     parsed.Cycles,
		Statistics: parsed.Statistics,
		UploadedAt: time.Now(),
	}
	if err := a.store.Put(ctx, d); err != nil {
		return nil, err
	}

	a.metrics.RecordLatency("analyze", time.Since(start).Seconds())
	a.log.Info("dataset analyzed",
		logger.String("id", d.ID),
		logger.String("stem", d.Stem),
		logger.Int("cycles", len(d.Cycles)),
	)
	return d, nil
}

func (a *DatasetAnalyzer) parse(stem string, payload []byte) (cachedParse, error) {
	f, err := matfile.ParseBytes(payload)
	if err != nil {
		a.metrics.RecordError("decode")
		return cachedParse{}, err
	}
	cycles, err := parser.Parse(f, stem)
	if err != nil {
		a.metrics.RecordError("parse")
		return cachedParse{}, err
	}
	return cachedParse{
		Stem:       stem,
		Cycles:     cycles,
		Statistics: stats.Compute(cycles),
	}, nil
}

// Get returns one retained dataset.
func (a *DatasetAnalyzer) Get(ctx context.Context, id string) (*models.Dataset, error) {
	return a.store.Get(ctx, id)
}

// List summarizes every retained dataset, newest first.
func (a *DatasetAnalyzer) List(ctx context.Context) ([]models.Summary, error) {
	datasets, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Summary, len(datasets))
	for i, d := range datasets {
		cached, _ := a.cache.Exists(ctx, d.ContentKey)
		out[i] = d.Summarize(cached)
	}
	return out, nil
}

// Invalidate drops a dataset and its cached parse result.
func (a *DatasetAnalyzer) Invalidate(ctx context.Context, id string) error {
	d, err := a.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := a.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := a.cache.Delete(ctx, d.ContentKey); err != nil {
		a.log.Warn("parse cache invalidation failed", logger.Error(err))
	}
	a.log.Info("dataset invalidated", logger.String("id", id))
	return nil
}

// TrendChart builds the statistics trend chart for one dataset.
func (a *DatasetAnalyzer) TrendChart(ctx context.Context, req *models.TrendChartRequest) (*models.Chart, error) {
	d, err := a.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return charts.Trend(d, req), nil
}

// VoltageChart builds the voltage-vs-time overlay for a cycle range.
func (a *DatasetAnalyzer) VoltageChart(ctx context.Context, req *models.VoltageChartRequest, maxSamples int) (*models.Chart, error) {
	d, err := a.store.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return charts.VoltageCurves(d, req.From, req.To, maxSamples), nil
}

// ExportStatistics streams the dataset's statistics as TSV and returns
// the download filename.
func (a *DatasetAnalyzer) ExportStatistics(ctx context.Context, id string, w io.Writer) (string, error) {
	d, err := a.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := export.WriteStatistics(w, d.Statistics); err != nil {
		return "", err
	}
	return export.Filename(d.Stem), nil
}
