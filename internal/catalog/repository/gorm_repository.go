package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/averta/stocksync/internal/catalog/domain"
)

const (
	// MaxListLimit caps product listings.
	MaxListLimit = 200
	// DefaultListLimit applies when a filter carries no limit.
	DefaultListLimit = 50
	// MaxChangeLimit caps change-log queries.
	MaxChangeLimit = 500
)

// GormCatalogRepository is the embedded file-based backend.
type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// Init creates the schema idempotently.
func (r *GormCatalogRepository) Init() error {
	return r.db.AutoMigrate(&domain.Product{}, &domain.Price{}, &domain.ProductChange{})
}

func (r *GormCatalogRepository) Summary() (*domain.CatalogSummary, error) {
	summary := &domain.CatalogSummary{
		ByAvailability: map[domain.Availability]int64{},
	}

	if err := r.db.Model(&domain.Product{}).Count(&summary.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	type bucket struct {
		Availability domain.Availability
		N            int64
	}
	var buckets []bucket
	err := r.db.Model(&domain.Product{}).
		Select("availability, count(*) as n").
		Group("availability").
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate availability: %w", err)
	}
	for _, b := range buckets {
		summary.ByAvailability[b.Availability] = b.N
	}

	if summary.TotalProducts > 0 {
		var last time.Time
		err = r.db.Model(&domain.Product{}).
			Select("max(last_seen_at)").
			Scan(&last).Error
		if err != nil {
			return nil, fmt.Errorf("failed to read last seen: %w", err)
		}
		summary.LastSeenAt = &last
	}
	return summary, nil
}

func (r *GormCatalogRepository) Brands() ([]string, error) {
	var brands []string
	err := r.db.Model(&domain.Product{}).
		Distinct("brand").
		Where("brand IS NOT NULL").
		Order("brand").
		Pluck("brand", &brands).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

func (r *GormCatalogRepository) FindProducts(filter domain.ProductFilter) ([]domain.ProductWithPrice, int64, error) {
	q := r.db.Model(&domain.Product{})

	if filter.Search != "" {
		q = q.Where("name_key LIKE ?", "%"+domain.NameKey(filter.Search)+"%")
	}
	switch filter.Brand {
	case "":
	case domain.BrandUnbranded:
		q = q.Where("brand IS NULL")
	default:
		q = q.Where("brand = ?", filter.Brand)
	}
	if filter.Availability != "" {
		q = q.Where("availability = ?", filter.Availability)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	order := sortColumn(filter.SortBy)
	if filter.SortDesc {
		order += " DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	var products []domain.Product
	err := q.Order(order).Limit(limit).Offset(filter.Offset).Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	out, err := r.attachPrices(products)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case domain.SortByQuantity:
		return "stock_qty"
	case domain.SortByAvailability:
		return "availability"
	default:
		return "name"
	}
}

func (r *GormCatalogRepository) attachPrices(products []domain.Product) ([]domain.ProductWithPrice, error) {
	out := make([]domain.ProductWithPrice, len(products))
	if len(products) == 0 {
		return out, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
		out[i] = domain.ProductWithPrice{Product: p}
	}

	var prices []domain.Price
	if err := r.db.Where("product_id IN ?", ids).Find(&prices).Error; err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	byID := make(map[string]domain.Price, len(prices))
	for _, p := range prices {
		byID[p.ProductID] = p
	}
	for i := range out {
		if price, ok := byID[out[i].Product.ID]; ok {
			p := price
			out[i].Price = &p
		}
	}
	return out, nil
}

func (r *GormCatalogRepository) FindProductByID(id string) (*domain.Product, error) {
	var product domain.Product
	err := r.db.Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product, nil
}

func (r *GormCatalogRepository) FindByNameKeys(keys []string) (map[string]domain.ProductWithPrice, error) {
	result := make(map[string]domain.ProductWithPrice, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var products []domain.Product
	if err := r.db.Where("name_key IN ?", keys).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to prefetch products: %w", err)
	}
	withPrices, err := r.attachPrices(products)
	if err != nil {
		return nil, err
	}
	for _, pw := range withPrices {
		result[pw.Product.NameKey] = pw
	}
	return result, nil
}

// UpsertProducts writes rows keyed on name_key. ID and CreatedAt of existing
// rows survive the conflict update.
func (r *GormCatalogRepository) UpsertProducts(products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "brand", "stock_qty", "unit", "availability", "last_seen_at", "updated_at",
		}),
	}).Create(&products).Error
	if err != nil {
		return fmt.Errorf("failed to upsert products: %w", err)
	}
	return nil
}

func (r *GormCatalogRepository) InsertChanges(changes []domain.ProductChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := r.db.Create(&changes).Error; err != nil {
		return fmt.Errorf("failed to insert changes: %w", err)
	}
	return nil
}

func (r *GormCatalogRepository) FindPrice(productID string) (*domain.Price, error) {
	var price domain.Price
	err := r.db.Where("product_id = ?", productID).First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find price: %w", err)
	}
	return &price, nil
}

func (r *GormCatalogRepository) SavePrice(price *domain.Price) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dealer_price", "updated_at"}),
	}).Create(price).Error
	if err != nil {
		return fmt.Errorf("failed to save price: %w", err)
	}
	return nil
}

func (r *GormCatalogRepository) ListChanges(filter domain.ChangeFilter) ([]domain.ProductChange, error) {
	q := r.db.Model(&domain.ProductChange{})

	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if len(filter.Types) > 0 {
		q = q.Where("change_type IN ?", filter.Types)
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxChangeLimit {
		limit = MaxChangeLimit
	}

	var changes []domain.ProductChange
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&changes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	return changes, nil
}

func (r *GormCatalogRepository) CountProducts() (int64, error) {
	var count int64
	err := r.db.Model(&domain.Product{}).Count(&count).Error
	return count, err
}

func (r *GormCatalogRepository) AllProductsWithPrices() ([]domain.ProductWithPrice, error) {
	var products []domain.Product
	if err := r.db.Order("name").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	return r.attachPrices(products)
}
