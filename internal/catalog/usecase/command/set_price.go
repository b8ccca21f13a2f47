package command

import (
	"context"
	"errors"
	"time"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/pkg/logger"
)

// SetPriceCommand updates one product's dealer price.
type SetPriceCommand struct {
	ProductID   string
	DealerPrice *float64
}

// SetPriceResult is always returned, never an error: a single failed edit
// must not abort a larger request flow.
type SetPriceResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SetPriceHandler is the synchronous price-edit path. It runs outside the
// import pipeline: imports never touch prices, and this path never produces
// stock-related changes.
type SetPriceHandler struct {
	repo   domain.CatalogRepository
	mirror Mirror
}

// NewSetPriceHandler creates a new price handler. mirror may be nil.
func NewSetPriceHandler(repo domain.CatalogRepository, mirror Mirror) *SetPriceHandler {
	return &SetPriceHandler{repo: repo, mirror: mirror}
}

// Handle reads the current price, writes the new one, and appends a
// PRICE_CHANGE row when they differ.
func (h *SetPriceHandler) Handle(ctx context.Context, cmd SetPriceCommand) SetPriceResult {
	product, err := h.repo.FindProductByID(cmd.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return SetPriceResult{Error: "product not found"}
		}
		return SetPriceResult{Error: err.Error()}
	}

	current, err := h.repo.FindPrice(cmd.ProductID)
	if err != nil {
		return SetPriceResult{Error: err.Error()}
	}

	var oldPrice *float64
	if current != nil {
		oldPrice = current.DealerPrice
	}

	now := time.Now()
	price := &domain.Price{
		ProductID:   cmd.ProductID,
		DealerPrice: cmd.DealerPrice,
		UpdatedAt:   now,
	}
	if err := h.repo.SavePrice(price); err != nil {
		return SetPriceResult{Error: err.Error()}
	}

	if !priceEqual(oldPrice, cmd.DealerPrice) {
		change := domain.ProductChange{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductBrand: product.Brand,
			ChangeType:   domain.ChangePriceChange,
			FromPrice:    oldPrice,
			ToPrice:      cmd.DealerPrice,
			CreatedAt:    now,
		}
		if err := h.repo.InsertChanges([]domain.ProductChange{change}); err != nil {
			return SetPriceResult{Error: err.Error()}
		}
		changesTotal.WithLabelValues(string(domain.ChangePriceChange)).Inc()
	}

	if h.mirror != nil {
		if err := h.mirror.StorePrice(ctx, *price); err != nil {
			logger.Warn(ctx).
				Err(err).
				Str("product_id", cmd.ProductID).
				Msg("Failed to mirror price to cache store")
		}
	}

	return SetPriceResult{OK: true}
}

func priceEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
