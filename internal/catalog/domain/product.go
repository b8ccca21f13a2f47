package domain

import (
	"time"
)

// Availability classifies a product's stock state. It is always derived
// from StockQty via AvailabilityFromQty, never set independently.
type Availability string

const (
	AvailabilityInStock    Availability = "IN_STOCK"
	AvailabilityOutOfStock Availability = "OUT_OF_STOCK"
	AvailabilityNegative   Availability = "NEGATIVE"
	AvailabilityUnknown    Availability = "UNKNOWN"
)

// ChangeType classifies one entry in the product change log.
type ChangeType string

const (
	ChangeNewProduct  ChangeType = "NEW_PRODUCT"
	ChangeStockDrop   ChangeType = "STOCK_DROP"
	ChangeOutOfStock  ChangeType = "OUT_OF_STOCK"
	ChangePriceChange ChangeType = "PRICE_CHANGE"
)

// Product represents one catalog entry. Identity is NameKey; ID is minted
// once when a key is first seen and is stable across re-imports.
type Product struct {
	ID           string       `json:"id" gorm:"primaryKey;size:36"`
	Name         string       `json:"name" gorm:"not null"`
	NameKey      string       `json:"name_key" gorm:"uniqueIndex;not null"`
	Brand        *string      `json:"brand"`
	StockQty     *float64     `json:"stock_qty"`
	Unit         *string      `json:"unit"`
	Availability Availability `json:"availability" gorm:"not null;default:UNKNOWN"`
	LastSeenAt   time.Time    `json:"last_seen_at"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// IsAvailable checks if the product is in stock
func (p *Product) IsAvailable() bool {
	return p.Availability == AvailabilityInStock
}

// Price holds the dealer price for one product. It is mutated only by the
// explicit price-edit path; imports never read or write it.
type Price struct {
	ProductID   string    `json:"product_id" gorm:"primaryKey;size:36"`
	DealerPrice *float64  `json:"dealer_price"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Price) TableName() string {
	return "prices"
}

// ProductChange is one append-only audit record. Rows are never updated or
// deleted. Name and brand are denormalized snapshots taken at event time.
type ProductChange struct {
	ID               uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID        string        `json:"product_id" gorm:"index;size:36;not null"`
	ProductName      string        `json:"product_name" gorm:"not null"`
	ProductBrand     *string       `json:"product_brand"`
	ChangeType       ChangeType    `json:"change_type" gorm:"index;not null"`
	FromQty          *float64      `json:"from_qty"`
	ToQty            *float64      `json:"to_qty"`
	FromAvailability *Availability `json:"from_availability"`
	ToAvailability   *Availability `json:"to_availability"`
	FromPrice        *float64      `json:"from_price"`
	ToPrice          *float64      `json:"to_price"`
	CreatedAt        time.Time     `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (ProductChange) TableName() string {
	return "product_changes"
}

// ProductWithPrice pairs a product with its price row, if any.
type ProductWithPrice struct {
	Product Product `json:"product"`
	Price   *Price  `json:"price,omitempty"`
}

// CatalogSummary aggregates the catalog for status displays.
type CatalogSummary struct {
	TotalProducts  int64                  `json:"total_products"`
	ByAvailability map[Availability]int64 `json:"by_availability"`
	LastSeenAt     *time.Time             `json:"last_seen_at"`
}

// Product sort keys accepted by ProductFilter.
const (
	SortByName         = "name"
	SortByQuantity     = "quantity"
	SortByAvailability = "availability"
)

// BrandUnbranded selects products without a brand when set as
// ProductFilter.Brand.
const BrandUnbranded = "__unbranded__"

// ProductFilter narrows and orders a product listing.
type ProductFilter struct {
	Search       string
	Brand        string // empty = all, BrandUnbranded = brand IS NULL
	Availability Availability
	SortBy       string // name | quantity | availability
	SortDesc     bool
	Limit        int
	Offset       int
}

// ChangeFilter narrows a change-log query.
type ChangeFilter struct {
	ProductID string
	Since     *time.Time
	Types     []ChangeType
	Limit     int
}

// CatalogRepository defines the provider contract shared by the embedded
// and networked storage backends.
type CatalogRepository interface {
	// Init creates the schema idempotently.
	Init() error

	Summary() (*CatalogSummary, error)
	Brands() ([]string, error)
	FindProducts(filter ProductFilter) ([]ProductWithPrice, int64, error)
	FindProductByID(id string) (*Product, error)

	// FindByNameKeys bulk-loads existing state for an upsert chunk.
	FindByNameKeys(keys []string) (map[string]ProductWithPrice, error)
	// UpsertProducts inserts or overwrites rows keyed on name_key. ID and
	// CreatedAt of an existing row are preserved.
	UpsertProducts(products []Product) error
	InsertChanges(changes []ProductChange) error

	FindPrice(productID string) (*Price, error)
	SavePrice(price *Price) error

	ListChanges(filter ChangeFilter) ([]ProductChange, error)
	CountProducts() (int64, error)
	// AllProductsWithPrices streams full state for cache mirroring.
	AllProductsWithPrices() ([]ProductWithPrice, error)
}
