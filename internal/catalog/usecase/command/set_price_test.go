package command

import (
	"context"
	"testing"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/repository"
)

func seedProduct(t *testing.T, repo *repository.MemoryCatalogRepository, handler *UpsertBatchHandler, name string) string {
	t.Helper()
	if _, err := handler.Handle(context.Background(), UpsertBatchCommand{
		Items: canonical(t, domain.RawItem{Name: name, Quantity: ptr(1)}),
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	found, err := repo.FindByNameKeys([]string{domain.NameKey(name)})
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	return found[domain.NameKey(name)].Product.ID
}

func TestSetPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown product reports failure without error", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		handler := NewSetPriceHandler(repo, nil)

		result := handler.Handle(ctx, SetPriceCommand{ProductID: "missing", DealerPrice: ptr(10)})
		if result.OK {
			t.Error("result.OK = true, want false")
		}
		if result.Error == "" {
			t.Error("result.Error is empty")
		}
	})

	t.Run("first price write records one change", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		handler := NewSetPriceHandler(repo, nil)
		id := seedProduct(t, repo, upsert, "Widget")

		result := handler.Handle(ctx, SetPriceCommand{ProductID: id, DealerPrice: ptr(99.5)})
		if !result.OK {
			t.Fatalf("result.Error = %q", result.Error)
		}

		price, _ := repo.FindPrice(id)
		if price == nil || price.DealerPrice == nil || *price.DealerPrice != 99.5 {
			t.Errorf("stored price = %v, want 99.5", price)
		}

		changes, _ := repo.ListChanges(domain.ChangeFilter{Types: []domain.ChangeType{domain.ChangePriceChange}})
		if len(changes) != 1 {
			t.Fatalf("price changes = %d, want 1", len(changes))
		}
		if changes[0].FromPrice != nil {
			t.Errorf("FromPrice = %v, want nil", *changes[0].FromPrice)
		}
		if changes[0].ToPrice == nil || *changes[0].ToPrice != 99.5 {
			t.Errorf("ToPrice = %v, want 99.5", changes[0].ToPrice)
		}
	})

	t.Run("writing the same price twice records one change", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		handler := NewSetPriceHandler(repo, nil)
		id := seedProduct(t, repo, upsert, "Widget")

		handler.Handle(ctx, SetPriceCommand{ProductID: id, DealerPrice: ptr(50)})
		handler.Handle(ctx, SetPriceCommand{ProductID: id, DealerPrice: ptr(50)})

		changes, _ := repo.ListChanges(domain.ChangeFilter{Types: []domain.ChangeType{domain.ChangePriceChange}})
		if len(changes) != 1 {
			t.Errorf("price changes = %d, want 1", len(changes))
		}
	})

	t.Run("imports never touch prices", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		handler := NewSetPriceHandler(repo, nil)
		id := seedProduct(t, repo, upsert, "Widget")

		handler.Handle(ctx, SetPriceCommand{ProductID: id, DealerPrice: ptr(75)})

		// Re-import the same product with a new quantity
		if _, err := upsert.Handle(ctx, UpsertBatchCommand{
			Items: canonical(t, domain.RawItem{Name: "Widget", Quantity: ptr(20)}),
		}); err != nil {
			t.Fatalf("re-import failed: %v", err)
		}

		price, _ := repo.FindPrice(id)
		if price == nil || price.DealerPrice == nil || *price.DealerPrice != 75 {
			t.Errorf("price after re-import = %v, want 75 untouched", price)
		}
	})

	t.Run("mirrors the written price", func(t *testing.T) {
		repo := repository.NewMemoryCatalogRepository()
		upsert := NewUpsertBatchHandler(repo, nil, nil)
		mirror := &recordingMirror{}
		handler := NewSetPriceHandler(repo, mirror)
		id := seedProduct(t, repo, upsert, "Widget")

		handler.Handle(ctx, SetPriceCommand{ProductID: id, DealerPrice: ptr(10)})
		if len(mirror.prices) != 1 {
			t.Errorf("mirrored prices = %d, want 1", len(mirror.prices))
		}
	})
}
