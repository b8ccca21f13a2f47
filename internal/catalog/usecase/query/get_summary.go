package query

import (
	"fmt"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// GetSummaryQuery represents the query for catalog aggregates
type GetSummaryQuery struct{}

// GetSummaryHandler handles the summary query
type GetSummaryHandler struct {
	repo domain.CatalogRepository
}

// NewGetSummaryHandler creates a new summary handler
func NewGetSummaryHandler(repo domain.CatalogRepository) *GetSummaryHandler {
	return &GetSummaryHandler{repo: repo}
}

// Handle executes the summary query
func (h *GetSummaryHandler) Handle(query GetSummaryQuery) (*domain.CatalogSummary, error) {
	summary, err := h.repo.Summary()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog summary: %w", err)
	}
	return summary, nil
}
