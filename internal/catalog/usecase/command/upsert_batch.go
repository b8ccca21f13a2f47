package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/pkg/logger"
)

var tracer = otel.Tracer("catalog-usecase")

// chunkSize bounds one prefetch-diff-write cycle so the key list stays
// within backend parameter limits.
const chunkSize = 200

// ChangeNotifier publishes change events to an external consumer. Optional.
type ChangeNotifier interface {
	PublishChange(ctx context.Context, change domain.ProductChange) error
}

// Mirror receives best-effort copies of catalog writes for the
// non-authoritative cache store. Optional.
type Mirror interface {
	StoreProducts(ctx context.Context, products []domain.Product) error
	StorePrice(ctx context.Context, price domain.Price) error
}

// contextStore is the optional traced-repository upgrade; backends wrapped by
// the tracing decorator expose these variants.
type contextStore interface {
	FindByNameKeysWithContext(ctx context.Context, keys []string) (map[string]domain.ProductWithPrice, error)
	UpsertProductsWithContext(ctx context.Context, products []domain.Product) error
	InsertChangesWithContext(ctx context.Context, changes []domain.ProductChange) error
}

// UpsertBatchCommand carries one canonical batch into the catalog.
type UpsertBatchCommand struct {
	Items []domain.CanonicalItem
}

// UpsertResult reports what one batch did.
type UpsertResult struct {
	Upserted int
	Changes  int
}

// UpsertBatchHandler reconciles canonical items against stored state,
// producing the updated catalog and its audit trail. File imports and live
// refreshes both end here.
type UpsertBatchHandler struct {
	repo     domain.CatalogRepository
	notifier ChangeNotifier
	mirror   Mirror
}

// NewUpsertBatchHandler creates the upsert engine. notifier and mirror may
// be nil.
func NewUpsertBatchHandler(repo domain.CatalogRepository, notifier ChangeNotifier, mirror Mirror) *UpsertBatchHandler {
	return &UpsertBatchHandler{repo: repo, notifier: notifier, mirror: mirror}
}

// Handle processes the batch chunk by chunk, sequentially: the
// prefetch-diff-write-log cycle of one chunk completes before the next
// begins, so change events stay ordered relative to the snapshot each chunk
// observed. No transaction wraps the cycle; two imports racing on one name
// key may interleave, which is accepted.
func (h *UpsertBatchHandler) Handle(ctx context.Context, cmd UpsertBatchCommand) (*UpsertResult, error) {
	result := &UpsertResult{}

	for start := 0; start < len(cmd.Items); start += chunkSize {
		end := start + chunkSize
		if end > len(cmd.Items) {
			end = len(cmd.Items)
		}
		if err := h.handleChunk(ctx, cmd.Items[start:end], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (h *UpsertBatchHandler) handleChunk(ctx context.Context, items []domain.CanonicalItem, result *UpsertResult) error {
	ctx, span := tracer.Start(ctx, "catalog.upsert_chunk",
		trace.WithAttributes(attribute.Int("chunk.items", len(items))),
	)
	defer span.End()

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = item.NameKey
	}

	existing, err := h.findByNameKeys(ctx, keys)
	if err != nil {
		return fmt.Errorf("failed to prefetch products: %w", err)
	}

	now := time.Now()
	products := make([]domain.Product, 0, len(items))
	var changes []domain.ProductChange

	for _, item := range items {
		prev, known := existing[item.NameKey]
		product := h.mergeProduct(item, prev, known, now)
		products = append(products, product)
		changes = append(changes, h.diff(item, prev, known, product, now)...)
	}

	if err := h.upsertProducts(ctx, products); err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	if err := h.insertChanges(ctx, changes); err != nil {
		return fmt.Errorf("failed to record changes: %w", err)
	}

	result.Upserted += len(products)
	result.Changes += len(changes)
	for _, change := range changes {
		changesTotal.WithLabelValues(string(change.ChangeType)).Inc()
	}
	span.SetAttributes(attribute.Int("chunk.changes", len(changes)))

	h.notify(ctx, changes)
	h.mirrorProducts(ctx, products)
	return nil
}

// mergeProduct builds the row to write. Name, quantity, availability and
// last-seen are always overwritten; brand and unit keep the stored value
// when the incoming one is null, so a sparser export cannot erase
// descriptive fields.
func (h *UpsertBatchHandler) mergeProduct(item domain.CanonicalItem, prev domain.ProductWithPrice, known bool, now time.Time) domain.Product {
	product := domain.Product{
		Name:         item.Name,
		NameKey:      item.NameKey,
		Brand:        item.Brand,
		StockQty:     item.Quantity,
		Unit:         item.Unit,
		Availability: item.Availability,
		LastSeenAt:   item.LastSeenAt,
		UpdatedAt:    now,
	}
	if !known {
		product.ID = uuid.NewString()
		product.CreatedAt = now
		return product
	}

	old := prev.Product
	product.ID = old.ID
	product.CreatedAt = old.CreatedAt
	if product.Brand == nil {
		product.Brand = old.Brand
	}
	if product.Unit == nil {
		product.Unit = old.Unit
	}
	return product
}

// diff emits the change rows for one item. A stock drop and an out-of-stock
// transition are independent and may both fire in one pass.
func (h *UpsertBatchHandler) diff(item domain.CanonicalItem, prev domain.ProductWithPrice, known bool, product domain.Product, now time.Time) []domain.ProductChange {
	base := domain.ProductChange{
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductBrand: product.Brand,
		CreatedAt:    now,
	}

	if !known {
		change := base
		change.ChangeType = domain.ChangeNewProduct
		change.ToQty = item.Quantity
		avail := item.Availability
		change.ToAvailability = &avail
		return []domain.ProductChange{change}
	}

	old := prev.Product
	var changes []domain.ProductChange

	if old.StockQty != nil && item.Quantity != nil && *item.Quantity < *old.StockQty {
		change := base
		change.ChangeType = domain.ChangeStockDrop
		change.FromQty = old.StockQty
		change.ToQty = item.Quantity
		oldAvail, newAvail := old.Availability, item.Availability
		change.FromAvailability = &oldAvail
		change.ToAvailability = &newAvail
		changes = append(changes, change)
	}

	if old.Availability != domain.AvailabilityOutOfStock && item.Availability == domain.AvailabilityOutOfStock {
		change := base
		change.ChangeType = domain.ChangeOutOfStock
		change.FromQty = old.StockQty
		change.ToQty = item.Quantity
		oldAvail, newAvail := old.Availability, item.Availability
		change.FromAvailability = &oldAvail
		change.ToAvailability = &newAvail
		changes = append(changes, change)
	}

	return changes
}

func (h *UpsertBatchHandler) findByNameKeys(ctx context.Context, keys []string) (map[string]domain.ProductWithPrice, error) {
	if cs, ok := h.repo.(contextStore); ok {
		return cs.FindByNameKeysWithContext(ctx, keys)
	}
	return h.repo.FindByNameKeys(keys)
}

func (h *UpsertBatchHandler) upsertProducts(ctx context.Context, products []domain.Product) error {
	if cs, ok := h.repo.(contextStore); ok {
		return cs.UpsertProductsWithContext(ctx, products)
	}
	return h.repo.UpsertProducts(products)
}

func (h *UpsertBatchHandler) insertChanges(ctx context.Context, changes []domain.ProductChange) error {
	if cs, ok := h.repo.(contextStore); ok {
		return cs.InsertChangesWithContext(ctx, changes)
	}
	return h.repo.InsertChanges(changes)
}

func (h *UpsertBatchHandler) notify(ctx context.Context, changes []domain.ProductChange) {
	if h.notifier == nil {
		return
	}
	for _, change := range changes {
		if err := h.notifier.PublishChange(ctx, change); err != nil {
			logger.Warn(ctx).
				Err(err).
				Str("product_id", change.ProductID).
				Str("change_type", string(change.ChangeType)).
				Msg("Failed to publish change event")
		}
	}
}

func (h *UpsertBatchHandler) mirrorProducts(ctx context.Context, products []domain.Product) {
	if h.mirror == nil {
		return
	}
	if err := h.mirror.StoreProducts(ctx, products); err != nil {
		logger.Warn(ctx).
			Err(err).
			Int("products", len(products)).
			Msg("Failed to mirror products to cache store")
	}
}
