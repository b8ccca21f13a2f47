package command

import (
	"context"
	"testing"
	"time"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/repository"
)

type fakeCacheSource struct {
	entries []domain.ProductWithPrice
}

func (f *fakeCacheSource) Len(_ context.Context) (int64, error) {
	return int64(len(f.entries)), nil
}

func (f *fakeCacheSource) Snapshot(_ context.Context) ([]domain.ProductWithPrice, error) {
	return f.entries, nil
}

func cachedEntry(name string, qty float64, price *float64) domain.ProductWithPrice {
	entry := domain.ProductWithPrice{
		Product: domain.Product{
			ID:           "cached-" + domain.NameKey(name),
			Name:         name,
			NameKey:      domain.NameKey(name),
			StockQty:     &qty,
			Availability: domain.AvailabilityFromQty(&qty),
			LastSeenAt:   time.Now().Add(-time.Hour),
		},
	}
	if price != nil {
		entry.Price = &domain.Price{ProductID: entry.Product.ID, DealerPrice: price}
	}
	return entry
}

func TestSeedFromCache(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store is seeded through the upsert path", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		cache := &fakeCacheSource{entries: []domain.ProductWithPrice{
			cachedEntry("Widget", 5, ptr(99)),
			cachedEntry("Bolt M8", 0, nil),
		}}
		seeder := NewSeedFromCacheHandler(repo, cache, upsert)

		result, err := seeder.Handle(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Seeded {
			t.Fatal("result.Seeded = false, want true")
		}
		if result.Products != 2 {
			t.Errorf("Products = %d, want 2", result.Products)
		}
		if result.Prices != 1 {
			t.Errorf("Prices = %d, want 1", result.Prices)
		}

		// The replay is an ordinary import: one NEW_PRODUCT per entry
		changes, _ := repo.ListChanges(domain.ChangeFilter{})
		if got := len(changesOfType(changes, domain.ChangeNewProduct)); got != 2 {
			t.Errorf("NEW_PRODUCT rows = %d, want 2", got)
		}
		// Price restoration bypasses the audit trail
		if got := len(changesOfType(changes, domain.ChangePriceChange)); got != 0 {
			t.Errorf("PRICE_CHANGE rows = %d, want 0", got)
		}

		found, _ := repo.FindByNameKeys([]string{"widget"})
		entry, ok := found["widget"]
		if !ok {
			t.Fatal("widget not seeded")
		}
		if entry.Price == nil || entry.Price.DealerPrice == nil || *entry.Price.DealerPrice != 99 {
			t.Errorf("restored price = %v, want 99", entry.Price)
		}
		// Price rows point at the freshly minted id, not the cached one
		if entry.Price.ProductID != entry.Product.ID {
			t.Errorf("price product id = %q, want %q", entry.Price.ProductID, entry.Product.ID)
		}
	})

	t.Run("populated store is left alone", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		upsert.Handle(ctx, UpsertBatchCommand{
			Items: canonical(t, domain.RawItem{Name: "Existing", Quantity: ptr(1)}),
		})

		cache := &fakeCacheSource{entries: []domain.ProductWithPrice{cachedEntry("Widget", 5, nil)}}
		seeder := NewSeedFromCacheHandler(repo, cache, upsert)

		result, err := seeder.Handle(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Seeded {
			t.Error("result.Seeded = true, want false")
		}
		count, _ := repo.CountProducts()
		if count != 1 {
			t.Errorf("product count = %d, want 1", count)
		}
	})

	t.Run("empty cache is a no-op", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		seeder := NewSeedFromCacheHandler(repo, &fakeCacheSource{}, upsert)

		result, err := seeder.Handle(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Seeded {
			t.Error("result.Seeded = true, want false")
		}
	})

	t.Run("nil cache is a no-op", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		seeder := NewSeedFromCacheHandler(repo, nil, upsert)

		result, err := seeder.Handle(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Seeded {
			t.Error("result.Seeded = true, want false")
		}
	})
}
