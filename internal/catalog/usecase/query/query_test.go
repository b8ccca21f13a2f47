package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/catalog/repository"
	"github.com/averta/stocksync/internal/catalog/usecase/command"
)

func ptr(v float64) *float64 { return &v }

func seededRepo(t *testing.T) *repository.MemoryCatalogRepository {
	t.Helper()
	repo := repository.NewMemoryCatalogRepository()
	upsert := command.NewUpsertBatchHandler(repo, nil, nil)

	items := domain.Canonicalize([]domain.RawItem{
		{Name: "Widget 5mm", Quantity: ptr(12)},
		{Name: "Bolt M8", Quantity: ptr(0)},
		{Name: "Rod 12mm", Quantity: ptr(-2)},
	}, time.Now())
	if _, err := upsert.Handle(context.Background(), command.UpsertBatchCommand{Items: items}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return repo
}

func TestListProducts(t *testing.T) {
	repo := seededRepo(t)
	handler := NewListProductsHandler(repo)

	t.Run("lists everything with total", func(t *testing.T) {
		result, err := handler.Handle(ListProductsQuery{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 3 {
			t.Errorf("Total = %d, want 3", result.Total)
		}
		if len(result.Products) != 3 {
			t.Errorf("page size = %d, want 3", len(result.Products))
		}
	})

	t.Run("filters by availability", func(t *testing.T) {
		result, err := handler.Handle(ListProductsQuery{
			Filter: domain.ProductFilter{Availability: domain.AvailabilityOutOfStock},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Total != 1 {
			t.Fatalf("Total = %d, want 1", result.Total)
		}
		if result.Products[0].Product.Name != "Bolt M8" {
			t.Errorf("product = %q, want Bolt M8", result.Products[0].Product.Name)
		}
	})

	t.Run("sorts by quantity descending", func(t *testing.T) {
		result, err := handler.Handle(ListProductsQuery{
			Filter: domain.ProductFilter{SortBy: domain.SortByQuantity, SortDesc: true},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Products[0].Product.Name != "Widget 5mm" {
			t.Errorf("first = %q, want Widget 5mm", result.Products[0].Product.Name)
		}
		if result.Products[2].Product.Name != "Rod 12mm" {
			t.Errorf("last = %q, want Rod 12mm", result.Products[2].Product.Name)
		}
	})

	t.Run("unknown sort key is invalid", func(t *testing.T) {
		_, err := handler.Handle(ListProductsQuery{Filter: domain.ProductFilter{SortBy: "price"}})
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})

	t.Run("unknown availability is invalid", func(t *testing.T) {
		_, err := handler.Handle(ListProductsQuery{Filter: domain.ProductFilter{Availability: "MAYBE"}})
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})
}

func TestGetSummary(t *testing.T) {
	repo := seededRepo(t)
	handler := NewGetSummaryHandler(repo)

	summary, err := handler.Handle(GetSummaryQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalProducts != 3 {
		t.Errorf("TotalProducts = %d, want 3", summary.TotalProducts)
	}
	if summary.ByAvailability[domain.AvailabilityInStock] != 1 {
		t.Errorf("IN_STOCK = %d, want 1", summary.ByAvailability[domain.AvailabilityInStock])
	}
	if summary.ByAvailability[domain.AvailabilityNegative] != 1 {
		t.Errorf("NEGATIVE = %d, want 1", summary.ByAvailability[domain.AvailabilityNegative])
	}
	if summary.LastSeenAt == nil {
		t.Error("LastSeenAt is nil")
	}
}

func TestListChanges(t *testing.T) {
	repo := seededRepo(t)
	handler := NewListChangesHandler(repo)

	t.Run("returns the audit trail", func(t *testing.T) {
		changes, err := handler.Handle(ListChangesQuery{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(changes) != 3 {
			t.Errorf("changes = %d, want 3 NEW_PRODUCT rows", len(changes))
		}
	})

	t.Run("filters by change type", func(t *testing.T) {
		changes, err := handler.Handle(ListChangesQuery{
			Filter: domain.ChangeFilter{Types: []domain.ChangeType{domain.ChangeStockDrop}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(changes) != 0 {
			t.Errorf("changes = %d, want 0", len(changes))
		}
	})

	t.Run("unknown change type is invalid", func(t *testing.T) {
		_, err := handler.Handle(ListChangesQuery{
			Filter: domain.ChangeFilter{Types: []domain.ChangeType{"RENAMED"}},
		})
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})
}

func TestListBrands(t *testing.T) {
	repo := repository.NewMemoryCatalogRepository()
	upsert := command.NewUpsertBatchHandler(repo, nil, nil)
	acme, zenith := "Acme", "Zenith"
	items := domain.Canonicalize([]domain.RawItem{
		{Name: "Widget 5mm", Brand: &acme, Quantity: ptr(1)},
		{Name: "Rod 12mm", Brand: &zenith, Quantity: ptr(1)},
		{Name: "Loose Item", Quantity: ptr(1)},
	}, time.Now())
	if _, err := upsert.Handle(context.Background(), command.UpsertBatchCommand{Items: items}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	brands, err := NewListBrandsHandler(repo).Handle()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(brands) != 2 {
		t.Fatalf("brands = %v, want [Acme Zenith]", brands)
	}
	if brands[0] != "Acme" || brands[1] != "Zenith" {
		t.Errorf("brands = %v, want sorted [Acme Zenith]", brands)
	}
}
