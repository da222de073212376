package repository_test

import (
	"context"
	"testing"
	"time"

	"BattPulse/internal/domain/models"
	domainrepo "BattPulse/internal/domain/repository"
	"BattPulse/internal/repository"
)

func TestDatasetIDDeterministic(t *testing.T) {
	payload := []byte("mat bytes")
	a := repository.DatasetID(payload)
	b := repository.DatasetID(payload)
	if a != b {
		t.Fatalf("same payload produced %q and %q", a, b)
	}
	if len(a) != repository.IDLength {
		t.Fatalf("id length = %d", len(a))
	}
	if c := repository.DatasetID([]byte("other")); c == a {
		t.Fatalf("different payloads share an id")
	}
}

func TestMemoryDatasetStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryDatasetStore()

	d := &models.Dataset{ID: "abc123", Stem: "B0005", UploadedAt: time.Now()}
	if err := store.Put(ctx, d); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stem != "B0005" {
		t.Fatalf("stem = %q", got.Stem)
	}

	if err := store.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "abc123"); err != domainrepo.ErrDatasetNotFound {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "abc123"); err != domainrepo.ErrDatasetNotFound {
		t.Fatalf("double delete must report not found, got %v", err)
	}
}

func TestMemoryDatasetStoreListOrder(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryDatasetStore()

	base := time.Now()
	for i, id := range []string{"one", "two", "three"} {
		d := &models.Dataset{ID: id, UploadedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.Put(ctx, d); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != "three" || list[2].ID != "one" {
		t.Fatalf("listing not newest-first: %s %s %s", list[0].ID, list[1].ID, list[2].ID)
	}
}
