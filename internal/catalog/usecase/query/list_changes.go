package query

import (
	"fmt"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// ListChangesQuery represents the change-log query
type ListChangesQuery struct {
	Filter domain.ChangeFilter
}

// ListChangesHandler handles change-log queries
type ListChangesHandler struct {
	repo domain.CatalogRepository
}

// NewListChangesHandler creates a new change-log handler
func NewListChangesHandler(repo domain.CatalogRepository) *ListChangesHandler {
	return &ListChangesHandler{repo: repo}
}

// Handle executes the change-log query
func (h *ListChangesHandler) Handle(query ListChangesQuery) ([]domain.ProductChange, error) {
	for _, t := range query.Filter.Types {
		switch t {
		case domain.ChangeNewProduct, domain.ChangeStockDrop,
			domain.ChangeOutOfStock, domain.ChangePriceChange:
		default:
			return nil, fmt.Errorf("%w: unknown change type %q", domain.ErrInvalidQuery, t)
		}
	}

	changes, err := h.repo.ListChanges(query.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	return changes, nil
}
