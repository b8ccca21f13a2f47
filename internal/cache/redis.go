package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/averta/stocksync/internal/catalog/domain"
)

const (
	productsKey = "catalog:products" // hash: name key -> product json
	pricesKey   = "catalog:prices"   // hash: product id -> price json
)

// RedisStore mirrors catalog state into redis. It is non-authoritative: the
// relational store owns the data, this copy exists to survive a wiped
// database and to reseed it on startup.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new cache store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// StoreProducts mirrors upserted rows, keyed by name key.
func (s *RedisStore) StoreProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, p := range products {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode product %q: %w", p.NameKey, err)
		}
		pipe.HSet(ctx, productsKey, p.NameKey, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror products: %w", err)
	}
	return nil
}

// StorePrice mirrors one price row, keyed by product id.
func (s *RedisStore) StorePrice(ctx context.Context, price domain.Price) error {
	payload, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("failed to encode price: %w", err)
	}
	if err := s.client.HSet(ctx, pricesKey, price.ProductID, payload).Err(); err != nil {
		return fmt.Errorf("failed to mirror price: %w", err)
	}
	return nil
}

// Len returns the number of mirrored products.
func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	n, err := s.client.HLen(ctx, productsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cache size: %w", err)
	}
	return n, nil
}

// Snapshot reads the full mirrored state for seeding.
func (s *RedisStore) Snapshot(ctx context.Context) ([]domain.ProductWithPrice, error) {
	productBlobs, err := s.client.HGetAll(ctx, productsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mirrored products: %w", err)
	}
	priceBlobs, err := s.client.HGetAll(ctx, pricesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mirrored prices: %w", err)
	}

	prices := make(map[string]domain.Price, len(priceBlobs))
	for id, blob := range priceBlobs {
		var price domain.Price
		if err := json.Unmarshal([]byte(blob), &price); err != nil {
			continue
		}
		prices[id] = price
	}

	out := make([]domain.ProductWithPrice, 0, len(productBlobs))
	for key, blob := range productBlobs {
		var product domain.Product
		if err := json.Unmarshal([]byte(blob), &product); err != nil {
			return nil, fmt.Errorf("corrupt cache entry %q: %w", key, err)
		}
		entry := domain.ProductWithPrice{Product: product}
		if price, ok := prices[product.ID]; ok {
			p := price
			entry.Price = &p
		}
		out = append(out, entry)
	}
	return out, nil
}
