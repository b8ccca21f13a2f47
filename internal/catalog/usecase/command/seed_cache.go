package command

import (
	"context"
	"fmt"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/pkg/logger"
)

// CacheSource reads back the non-authoritative cache store's current state.
type CacheSource interface {
	Len(ctx context.Context) (int64, error)
	Snapshot(ctx context.Context) ([]domain.ProductWithPrice, error)
}

// SeedResult reports one seeding attempt.
type SeedResult struct {
	Seeded   bool
	Products int
	Prices   int
}

// SeedFromCacheHandler replays the cache store into an empty authoritative
// store, once. The replay goes through the standard upsert path, so the seed
// is indistinguishable in the audit trail from an ordinary import; prices
// are restored directly and produce no change rows.
type SeedFromCacheHandler struct {
	repo   domain.CatalogRepository
	cache  CacheSource
	upsert *UpsertBatchHandler
}

// NewSeedFromCacheHandler creates a new seed handler. cache may be nil, in
// which case seeding is a no-op.
func NewSeedFromCacheHandler(repo domain.CatalogRepository, cache CacheSource, upsert *UpsertBatchHandler) *SeedFromCacheHandler {
	return &SeedFromCacheHandler{repo: repo, cache: cache, upsert: upsert}
}

// Handle seeds if and only if the authoritative store is empty and the cache
// is not. A second run finds a populated store and does nothing.
func (h *SeedFromCacheHandler) Handle(ctx context.Context) (*SeedResult, error) {
	if h.cache == nil {
		return &SeedResult{}, nil
	}

	count, err := h.repo.CountProducts()
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return &SeedResult{}, nil
	}

	cached, err := h.cache.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect cache store: %w", err)
	}
	if cached == 0 {
		return &SeedResult{}, nil
	}

	entries, err := h.cache.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache snapshot: %w", err)
	}

	items := make([]domain.CanonicalItem, 0, len(entries))
	for _, e := range entries {
		p := e.Product
		items = append(items, domain.CanonicalItem{
			Name:         p.Name,
			NameKey:      domain.NameKey(p.Name),
			Brand:        p.Brand,
			Quantity:     p.StockQty,
			Unit:         p.Unit,
			Availability: domain.AvailabilityFromQty(p.StockQty),
			LastSeenAt:   p.LastSeenAt,
		})
	}

	result, err := h.upsert.Handle(ctx, UpsertBatchCommand{Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to replay cache into store: %w", err)
	}

	prices, err := h.restorePrices(entries)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Int("products", result.Upserted).
		Int("prices", prices).
		Msg("Authoritative store seeded from cache")

	return &SeedResult{Seeded: true, Products: result.Upserted, Prices: prices}, nil
}

// restorePrices writes cached price rows against the freshly minted product
// ids. Direct writes: seeding must not fabricate PRICE_CHANGE history.
func (h *SeedFromCacheHandler) restorePrices(entries []domain.ProductWithPrice) (int, error) {
	keys := make([]string, 0, len(entries))
	byKey := make(map[string]*domain.Price, len(entries))
	for _, e := range entries {
		if e.Price == nil {
			continue
		}
		key := domain.NameKey(e.Product.Name)
		keys = append(keys, key)
		price := *e.Price
		byKey[key] = &price
	}
	if len(keys) == 0 {
		return 0, nil
	}

	current, err := h.repo.FindByNameKeys(keys)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve seeded products: %w", err)
	}

	restored := 0
	for key, price := range byKey {
		row, ok := current[key]
		if !ok {
			continue
		}
		price.ProductID = row.Product.ID
		if err := h.repo.SavePrice(price); err != nil {
			return restored, fmt.Errorf("failed to restore price for %q: %w", key, err)
		}
		restored++
	}
	return restored, nil
}
