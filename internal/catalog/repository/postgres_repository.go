package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/averta/stocksync/internal/catalog/domain"
)

// PostgresCatalogRepository is the networked backend, implemented on
// database/sql with hand-written statements.
type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// Init creates the schema idempotently.
func (r *PostgresCatalogRepository) Init() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id           VARCHAR(36) PRIMARY KEY,
			name         TEXT NOT NULL,
			name_key     TEXT NOT NULL UNIQUE,
			brand        TEXT,
			stock_qty    DOUBLE PRECISION,
			unit         TEXT,
			availability TEXT NOT NULL DEFAULT 'UNKNOWN'
				CHECK (availability IN ('IN_STOCK', 'OUT_OF_STOCK', 'NEGATIVE', 'UNKNOWN')),
			last_seen_at TIMESTAMPTZ NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			product_id   VARCHAR(36) PRIMARY KEY REFERENCES products(id),
			dealer_price DOUBLE PRECISION,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_changes (
			id                BIGSERIAL PRIMARY KEY,
			product_id        VARCHAR(36) NOT NULL REFERENCES products(id),
			product_name      TEXT NOT NULL,
			product_brand     TEXT,
			change_type       TEXT NOT NULL
				CHECK (change_type IN ('NEW_PRODUCT', 'STOCK_DROP', 'OUT_OF_STOCK', 'PRICE_CHANGE')),
			from_qty          DOUBLE PRECISION,
			to_qty            DOUBLE PRECISION,
			from_availability TEXT,
			to_availability   TEXT,
			from_price        DOUBLE PRECISION,
			to_price          DOUBLE PRECISION,
			created_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_changes_product_id ON product_changes (product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_product_changes_created_at ON product_changes (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_product_changes_change_type ON product_changes (change_type)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

const productColumns = `id, name, name_key, brand, stock_qty, unit, availability, last_seen_at, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.NameKey,
		&p.Brand,
		&p.StockQty,
		&p.Unit,
		&p.Availability,
		&p.LastSeenAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresCatalogRepository) Summary() (*domain.CatalogSummary, error) {
	summary := &domain.CatalogSummary{
		ByAvailability: map[domain.Availability]int64{},
	}

	rows, err := r.db.Query(`SELECT availability, COUNT(*) FROM products GROUP BY availability`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate availability: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var availability domain.Availability
		var n int64
		if err := rows.Scan(&availability, &n); err != nil {
			return nil, fmt.Errorf("failed to scan availability bucket: %w", err)
		}
		summary.ByAvailability[availability] = n
		summary.TotalProducts += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read availability buckets: %w", err)
	}

	var last sql.NullTime
	err = r.db.QueryRow(`SELECT MAX(last_seen_at) FROM products`).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("failed to read last seen: %w", err)
	}
	if last.Valid {
		summary.LastSeenAt = &last.Time
	}
	return summary, nil
}

func (r *PostgresCatalogRepository) Brands() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT brand FROM products WHERE brand IS NOT NULL ORDER BY brand`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	defer rows.Close()

	brands := []string{}
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

func (r *PostgresCatalogRepository) FindProducts(filter domain.ProductFilter) ([]domain.ProductWithPrice, int64, error) {
	where := []string{"1=1"}
	args := []any{}

	if filter.Search != "" {
		args = append(args, "%"+domain.NameKey(filter.Search)+"%")
		where = append(where, fmt.Sprintf("name_key LIKE $%d", len(args)))
	}
	switch filter.Brand {
	case "":
	case domain.BrandUnbranded:
		where = append(where, "brand IS NULL")
	default:
		args = append(args, filter.Brand)
		where = append(where, fmt.Sprintf("brand = $%d", len(args)))
	}
	if filter.Availability != "" {
		args = append(args, string(filter.Availability))
		where = append(where, fmt.Sprintf("availability = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM products WHERE `+cond, args...).Scan(&total)
	if err != nil {
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
	args = append(args, limit, filter.Offset)

	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, cond, order, len(args)-1, len(args),
	)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read products: %w", err)
	}

	out, err := r.attachPrices(products)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PostgresCatalogRepository) attachPrices(products []domain.Product) ([]domain.ProductWithPrice, error) {
	out := make([]domain.ProductWithPrice, len(products))
	if len(products) == 0 {
		return out, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
		out[i] = domain.ProductWithPrice{Product: p}
	}

	rows, err := r.db.Query(
		`SELECT product_id, dealer_price, updated_at FROM prices WHERE product_id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	defer rows.Close()

	byID := map[string]domain.Price{}
	for rows.Next() {
		var price domain.Price
		if err := rows.Scan(&price.ProductID, &price.DealerPrice, &price.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		byID[price.ProductID] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	for i := range out {
		if price, ok := byID[out[i].Product.ID]; ok {
			p := price
			out[i].Price = &p
		}
	}
	return out, nil
}

func (r *PostgresCatalogRepository) FindProductByID(id string) (*domain.Product, error) {
	row := r.db.QueryRow(`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return p, nil
}

func (r *PostgresCatalogRepository) FindByNameKeys(keys []string) (map[string]domain.ProductWithPrice, error) {
	result := make(map[string]domain.ProductWithPrice, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(
		`SELECT `+productColumns+` FROM products WHERE name_key = ANY($1)`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prefetch products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
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

func (r *PostgresCatalogRepository) UpsertProducts(products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO products (id, name, name_key, brand, stock_qty, unit, availability, last_seen_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (name_key) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			stock_qty = EXCLUDED.stock_qty,
			unit = EXCLUDED.unit,
			availability = EXCLUDED.availability,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		_, err := stmt.Exec(
			p.ID, p.Name, p.NameKey, p.Brand, p.StockQty, p.Unit,
			string(p.Availability), p.LastSeenAt, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %q: %w", p.NameKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) InsertChanges(changes []domain.ProductChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin change insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO product_changes (
			product_id, product_name, product_brand, change_type,
			from_qty, to_qty, from_availability, to_availability,
			from_price, to_price, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare change insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range changes {
		_, err := stmt.Exec(
			c.ProductID, c.ProductName, c.ProductBrand, string(c.ChangeType),
			c.FromQty, c.ToQty, availabilityString(c.FromAvailability), availabilityString(c.ToAvailability),
			c.FromPrice, c.ToPrice, c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert change: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit change insert: %w", err)
	}
	return nil
}

func availabilityString(a *domain.Availability) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

func (r *PostgresCatalogRepository) FindPrice(productID string) (*domain.Price, error) {
	price := &domain.Price{}
	err := r.db.QueryRow(
		`SELECT product_id, dealer_price, updated_at FROM prices WHERE product_id = $1`,
		productID,
	).Scan(&price.ProductID, &price.DealerPrice, &price.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find price: %w", err)
	}
	return price, nil
}

func (r *PostgresCatalogRepository) SavePrice(price *domain.Price) error {
	_, err := r.db.Exec(`
		INSERT INTO prices (product_id, dealer_price, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET
			dealer_price = EXCLUDED.dealer_price,
			updated_at = EXCLUDED.updated_at
	`, price.ProductID, price.DealerPrice, price.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save price: %w", err)
	}
	return nil
}

func (r *PostgresCatalogRepository) ListChanges(filter domain.ChangeFilter) ([]domain.ProductChange, error) {
	where := []string{"1=1"}
	args := []any{}

	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		where = append(where, fmt.Sprintf("change_type = ANY($%d)", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxChangeLimit {
		limit = MaxChangeLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, product_id, product_name, product_brand, change_type,
		       from_qty, to_qty, from_availability, to_availability,
		       from_price, to_price, created_at
		FROM product_changes
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	changes := []domain.ProductChange{}
	for rows.Next() {
		var c domain.ProductChange
		err := rows.Scan(
			&c.ID, &c.ProductID, &c.ProductName, &c.ProductBrand, &c.ChangeType,
			&c.FromQty, &c.ToQty, &c.FromAvailability, &c.ToAvailability,
			&c.FromPrice, &c.ToPrice, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *PostgresCatalogRepository) CountProducts() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count)
	return count, err
}

func (r *PostgresCatalogRepository) AllProductsWithPrices() ([]domain.ProductWithPrice, error) {
	rows, err := r.db.Query(`SELECT ` + productColumns + ` FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	return r.attachPrices(products)
}
