package query

import (
	"fmt"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// ListBrandsHandler handles the distinct-brand listing
type ListBrandsHandler struct {
	repo domain.CatalogRepository
}

// NewListBrandsHandler creates a new brand handler
func NewListBrandsHandler(repo domain.CatalogRepository) *ListBrandsHandler {
	return &ListBrandsHandler{repo: repo}
}

// Handle returns all distinct brands in the catalog
func (h *ListBrandsHandler) Handle() ([]string, error) {
	brands, err := h.repo.Brands()
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}
