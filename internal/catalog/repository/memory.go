package repository

import (
	"sort"
	"strings"
	"sync"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// MemoryCatalogRepository is a mutex-guarded map-backed implementation of the
// provider contract. It backs usecase tests; it is not a production store.
type MemoryCatalogRepository struct {
	mu       sync.Mutex
	products map[string]domain.Product // by name key
	prices   map[string]domain.Price   // by product id
	changes  []domain.ProductChange
	nextID   uint
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		products: map[string]domain.Product{},
		prices:   map[string]domain.Price{},
	}
}

func (r *MemoryCatalogRepository) Init() error { return nil }

func (r *MemoryCatalogRepository) Summary() (*domain.CatalogSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := &domain.CatalogSummary{
		ByAvailability: map[domain.Availability]int64{},
	}
	for _, p := range r.products {
		summary.TotalProducts++
		summary.ByAvailability[p.Availability]++
		if summary.LastSeenAt == nil || p.LastSeenAt.After(*summary.LastSeenAt) {
			t := p.LastSeenAt
			summary.LastSeenAt = &t
		}
	}
	return summary, nil
}

func (r *MemoryCatalogRepository) Brands() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]bool{}
	for _, p := range r.products {
		if p.Brand != nil {
			seen[*p.Brand] = true
		}
	}
	brands := make([]string, 0, len(seen))
	for b := range seen {
		brands = append(brands, b)
	}
	sort.Strings(brands)
	return brands, nil
}

func (r *MemoryCatalogRepository) FindProducts(filter domain.ProductFilter) ([]domain.ProductWithPrice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Product
	for _, p := range r.products {
		if filter.Search != "" && !strings.Contains(p.NameKey, domain.NameKey(filter.Search)) {
			continue
		}
		switch filter.Brand {
		case "":
		case domain.BrandUnbranded:
			if p.Brand != nil {
				continue
			}
		default:
			if p.Brand == nil || *p.Brand != filter.Brand {
				continue
			}
		}
		if filter.Availability != "" && p.Availability != filter.Availability {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case domain.SortByQuantity:
			less = qtyOrZero(matched[i].StockQty) < qtyOrZero(matched[j].StockQty)
		case domain.SortByAvailability:
			less = matched[i].Availability < matched[j].Availability
		default:
			less = matched[i].Name < matched[j].Name
		}
		if filter.SortDesc {
			return !less
		}
		return less
	})

	total := int64(len(matched))

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]domain.ProductWithPrice, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, r.withPriceLocked(p))
	}
	return out, total, nil
}

func qtyOrZero(q *float64) float64 {
	if q == nil {
		return 0
	}
	return *q
}

func (r *MemoryCatalogRepository) withPriceLocked(p domain.Product) domain.ProductWithPrice {
	pw := domain.ProductWithPrice{Product: p}
	if price, ok := r.prices[p.ID]; ok {
		cp := price
		pw.Price = &cp
	}
	return pw
}

func (r *MemoryCatalogRepository) FindProductByID(id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r *MemoryCatalogRepository) FindByNameKeys(keys []string) (map[string]domain.ProductWithPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[string]domain.ProductWithPrice, len(keys))
	for _, key := range keys {
		if p, ok := r.products[key]; ok {
			result[key] = r.withPriceLocked(p)
		}
	}
	return result, nil
}

func (r *MemoryCatalogRepository) UpsertProducts(products []domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range products {
		if existing, ok := r.products[p.NameKey]; ok {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		}
		r.products[p.NameKey] = p
	}
	return nil
}

func (r *MemoryCatalogRepository) InsertChanges(changes []domain.ProductChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range changes {
		r.nextID++
		c.ID = r.nextID
		r.changes = append(r.changes, c)
	}
	return nil
}

func (r *MemoryCatalogRepository) FindPrice(productID string) (*domain.Price, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if price, ok := r.prices[productID]; ok {
		cp := price
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryCatalogRepository) SavePrice(price *domain.Price) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prices[price.ProductID] = *price
	return nil
}

func (r *MemoryCatalogRepository) ListChanges(filter domain.ChangeFilter) ([]domain.ProductChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 || limit > MaxChangeLimit {
		limit = MaxChangeLimit
	}

	var out []domain.ProductChange
	for i := len(r.changes) - 1; i >= 0 && len(out) < limit; i-- {
		c := r.changes[i]
		if filter.ProductID != "" && c.ProductID != filter.ProductID {
			continue
		}
		if filter.Since != nil && c.CreatedAt.Before(*filter.Since) {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, c.ChangeType) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func containsType(types []domain.ChangeType, t domain.ChangeType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (r *MemoryCatalogRepository) CountProducts() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.products)), nil
}

func (r *MemoryCatalogRepository) AllProductsWithPrices() ([]domain.ProductWithPrice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.ProductWithPrice, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, r.withPriceLocked(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.Name < out[j].Product.Name })
	return out, nil
}
