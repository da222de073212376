package repository

import (
	"context"
	"sort"
	"sync"

	"BattPulse/internal/domain/models"
	"BattPulse/internal/domain/repository"
	"BattPulse/pkg/cache"
)

// IDLength is the number of content-hash hex characters used as the
// public dataset id. Long enough to never collide within one session.
const IDLength = 12

// DatasetID derives the public id from the upload's raw bytes, so the
// same file always maps to the same dataset.
func DatasetID(payload []byte) string {
	return cache.ContentHash(payload)[:IDLength]
}

// MemoryDatasetStore keeps parsed datasets in process memory. Each store
// owns its own map; nothing is shared across stores, so tests and
// sessions stay isolated.
type MemoryDatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*models.Dataset
}

// NewMemoryDatasetStore creates an empty store.
func NewMemoryDatasetStore() repository.DatasetStore {
	return &MemoryDatasetStore{datasets: make(map[string]*models.Dataset)}
}

func (s *MemoryDatasetStore) Put(ctx context.Context, d *models.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[d.ID] = d
	return nil
}

func (s *MemoryDatasetStore) Get(ctx context.Context, id string) (*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil, repository.ErrDatasetNotFound
	}
	return d, nil
}

func (s *MemoryDatasetStore) List(ctx context.Context) ([]*models.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		out = append(out, d)
	}
	// Newest first, id as tiebreaker for stable listings.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryDatasetStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[id]; !ok {
		return repository.ErrDatasetNotFound
	}
	delete(s.datasets, id)
	return nil
}
