// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
)

// CachingProductRepository decorates a ProductRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository. Catalog records for a barcode change
// rarely, so cached hits avoid a round trip to the external API.
type CachingProductRepository struct {
	inner     usecase.ProductRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingProductRepository decorates a ProductRepository with Redis caching.
// If ttl is 0, it defaults to 24 hours. If namespace is empty, it uses "product".
func NewCachingProductRepository(rdb *redis.Client, ttl time.Duration, inner usecase.ProductRepository, namespace string) *CachingProductRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if namespace == "" {
		namespace = "product"
	}
	return &CachingProductRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// FindByBarcode retrieves a product, checking cache first then falling back
// to the underlying repository. Lookup errors are never cached.
func (c *CachingProductRepository) FindByBarcode(ctx context.Context, barcode string) (*entity.Product, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.FindByBarcode(ctx, barcode)
	}

	key := c.cacheKey(barcode)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Product
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the external catalog
	out, err := c.inner.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// cacheKey generates a cache key for a barcode lookup.
func (c *CachingProductRepository) cacheKey(barcode string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(barcode))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
