package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/averta/stocksync/internal/catalog/domain"
)

var tracer = otel.Tracer("catalog-repository")

// TracedCatalogRepository wraps a backend with tracing. The plain interface
// methods delegate unchanged; the WithContext variants attach spans and are
// picked up by callers that carry a context (the upsert engine asserts for
// them).
type TracedCatalogRepository struct {
	domain.CatalogRepository
}

// NewTracedCatalogRepository creates a repository with tracing
func NewTracedCatalogRepository(base domain.CatalogRepository) *TracedCatalogRepository {
	return &TracedCatalogRepository{CatalogRepository: base}
}

// FindByNameKeysWithContext prefetches upsert state with tracing
func (r *TracedCatalogRepository) FindByNameKeysWithContext(ctx context.Context, keys []string) (map[string]domain.ProductWithPrice, error) {
	_, span := tracer.Start(ctx, "repository.FindByNameKeys",
		trace.WithAttributes(attribute.Int("keys.count", len(keys))),
	)
	defer span.End()

	existing, err := r.CatalogRepository.FindByNameKeys(keys)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("keys.found", len(existing)))
	return existing, nil
}

// UpsertProductsWithContext writes an upsert chunk with tracing
func (r *TracedCatalogRepository) UpsertProductsWithContext(ctx context.Context, products []domain.Product) error {
	_, span := tracer.Start(ctx, "repository.UpsertProducts",
		trace.WithAttributes(attribute.Int("products.count", len(products))),
	)
	defer span.End()

	if err := r.CatalogRepository.UpsertProducts(products); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// InsertChangesWithContext appends audit rows with tracing
func (r *TracedCatalogRepository) InsertChangesWithContext(ctx context.Context, changes []domain.ProductChange) error {
	_, span := tracer.Start(ctx, "repository.InsertChanges",
		trace.WithAttributes(attribute.Int("changes.count", len(changes))),
	)
	defer span.End()

	if err := r.CatalogRepository.InsertChanges(changes); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// FindProductsWithContext lists products with tracing
func (r *TracedCatalogRepository) FindProductsWithContext(ctx context.Context, filter domain.ProductFilter) ([]domain.ProductWithPrice, int64, error) {
	_, span := tracer.Start(ctx, "repository.FindProducts",
		trace.WithAttributes(
			attribute.String("filter.search", filter.Search),
			attribute.String("filter.brand", filter.Brand),
			attribute.String("filter.availability", string(filter.Availability)),
		),
	)
	defer span.End()

	products, total, err := r.CatalogRepository.FindProducts(filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int64("products.total", total))
	return products, total, nil
}
