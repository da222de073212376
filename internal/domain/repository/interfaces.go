package repository

import (
	"context"
	"errors"

	"BattPulse/internal/domain/models"
)

// ErrDatasetNotFound is returned for unknown dataset ids.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetStore keeps the session's parsed datasets. State is explicit and
// per-store; nothing here is process-global.
type DatasetStore interface {
	Put(ctx context.Context, d *models.Dataset) error
	Get(ctx context.Context, id string) (*models.Dataset, error)
	List(ctx context.Context) ([]*models.Dataset, error)
	Delete(ctx context.Context, id string) error
}

// Metrics records operational counters for the analytics pipeline.
type Metrics interface {
	RecordDatasetParsed(outcome string)
	RecordError(kind string)
	RecordCyclesRetained(n int)
	RecordLatency(op string, seconds float64)
	RecordCacheLookup(result string)
}
