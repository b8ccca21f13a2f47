package query

import (
	"fmt"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// ListProductsQuery represents the filtered product listing query
type ListProductsQuery struct {
	Filter domain.ProductFilter
}

// ListProductsResult carries one page plus the unpaged total
type ListProductsResult struct {
	Products []domain.ProductWithPrice `json:"products"`
	Total    int64                     `json:"total"`
}

// ListProductsHandler handles product listing
type ListProductsHandler struct {
	repo domain.CatalogRepository
}

// NewListProductsHandler creates a new list handler
func NewListProductsHandler(repo domain.CatalogRepository) *ListProductsHandler {
	return &ListProductsHandler{repo: repo}
}

// Handle executes the listing query
func (h *ListProductsHandler) Handle(query ListProductsQuery) (*ListProductsResult, error) {
	f := query.Filter

	switch f.SortBy {
	case "", domain.SortByName, domain.SortByQuantity, domain.SortByAvailability:
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", domain.ErrInvalidQuery, f.SortBy)
	}
	switch f.Availability {
	case "", domain.AvailabilityInStock, domain.AvailabilityOutOfStock,
		domain.AvailabilityNegative, domain.AvailabilityUnknown:
	default:
		return nil, fmt.Errorf("%w: unknown availability %q", domain.ErrInvalidQuery, f.Availability)
	}
	if f.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", domain.ErrInvalidQuery)
	}

	products, total, err := h.repo.FindProducts(f)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &ListProductsResult{Products: products, Total: total}, nil
}
