package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Alturino/storefront/internal/constants"
	inOtel "github.com/Alturino/storefront/internal/otel"
)

const (
	KEY_PRODUCTS         = "products:"
	KEY_PRODUCT_VERSIONS = "product_versions:"

	VERSION_TTL = 24 * time.Hour
)

// CachedCatalog is a read-through redis cache in front of another catalog.
// Concurrent misses for the same product collapse into one backend lookup.
// Every write bumps a per product version, a fill only lands when the version
// it started from is still current.
type CachedCatalog struct {
	next  CatalogRepository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedCatalog(next CatalogRepository, cache *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, cache: cache, ttl: ttl}
}

func productCacheKey(id uuid.UUID) string {
	return KEY_PRODUCTS + id.String()
}

func productVersionKey(id uuid.UUID) string {
	return KEY_PRODUCT_VERSIONS + id.String()
}

func (cc *CachedCatalog) FindProductById(c context.Context, id uuid.UUID) (Product, error) {
	c, span := inOtel.Tracer.Start(c, "CachedCatalog FindProductById")
	defer span.End()

	cacheKey := productCacheKey(id)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CachedCatalog FindProductById").
		Str(constants.KEY_CACHE_KEY, cacheKey).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product in cache").Logger()
	logger.Trace().Msg("finding product in cache")
	jsonCache, err := cc.cache.Get(c, cacheKey).Result()
	if err == nil {
		product := Product{}
		if err = json.Unmarshal([]byte(jsonCache), &product); err == nil {
			span.AddEvent("found product in cache")
			logger.Debug().Msg("found product in cache")
			return product, nil
		}
		err = fmt.Errorf("failed to unmarshal jsonCache with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
	} else if !errors.Is(err, redis.Nil) {
		err = fmt.Errorf("failed to get product from cache with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "finding product in backing catalog").Logger()
	logger.Trace().Msg("finding product in backing catalog")
	span.AddEvent("finding product in backing catalog")
	ch := cc.group.DoChan(cacheKey, func() (any, error) {
		return cc.load(context.WithoutCancel(c), id)
	})
	var result singleflight.Result
	select {
	case result = <-ch:
	case <-c.Done():
		err = fmt.Errorf("failed waiting for backing catalog with error=%w", c.Err())
		inOtel.RecordError(err, span)
		logger.Debug().Err(err).Msg(err.Error())
		return Product{}, err
	}
	if result.Err != nil {
		inOtel.RecordError(result.Err, span)
		logger.Debug().Err(result.Err).Msg(result.Err.Error())
		return Product{}, result.Err
	}
	product := result.Val.(Product)
	logger.Debug().Bool("shared", result.Shared).Msg("found product in backing catalog")
	return product.Clone(), nil
}

// load reads the version before the backing lookup so a write that lands while
// the lookup is in flight makes the fill a no-op.
func (cc *CachedCatalog) load(c context.Context, id uuid.UUID) (Product, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CachedCatalog load").
		Str(constants.KEY_PRODUCT_ID, id.String()).
		Logger()

	version, err := cc.cache.Get(c, productVersionKey(id)).Int64()
	cacheable := true
	if err != nil && !errors.Is(err, redis.Nil) {
		err = fmt.Errorf("failed getting product version with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
		cacheable = false
	}

	product, err := cc.next.FindProductById(c, id)
	if err != nil {
		return Product{}, err
	}
	if cacheable {
		cc.store(c, id, version, product)
	}
	return product, nil
}

func (cc *CachedCatalog) FindProducts(c context.Context) ([]Product, error) {
	return cc.next.FindProducts(c)
}

func (cc *CachedCatalog) SaveProduct(c context.Context, p Product) (Product, error) {
	saved, err := cc.next.SaveProduct(c, p)
	if err != nil {
		return Product{}, err
	}
	cc.invalidate(c, saved.ID)
	return saved, nil
}

func (cc *CachedCatalog) DeleteProduct(c context.Context, id uuid.UUID) error {
	if err := cc.next.DeleteProduct(c, id); err != nil {
		return err
	}
	cc.invalidate(c, id)
	return nil
}

var errStaleFill = errors.New("product changed while loading")

func (cc *CachedCatalog) store(c context.Context, id uuid.UUID, version int64, product Product) {
	cacheKey := productCacheKey(id)
	versionKey := productVersionKey(id)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CachedCatalog store").
		Str(constants.KEY_PROCESS, "inserting product to cache").
		Str(constants.KEY_CACHE_KEY, cacheKey).
		Int64("version", version).
		Logger()

	data, err := json.Marshal(product)
	if err != nil {
		err = fmt.Errorf("failed marshaling product with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
		return
	}
	err = cc.cache.Watch(c, func(tx *redis.Tx) error {
		current, err := tx.Get(c, versionKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(c, func(pipe redis.Pipeliner) error {
			pipe.Set(c, cacheKey, data, cc.ttl)
			return nil
		})
		return err
	}, versionKey)
	if errors.Is(err, errStaleFill) || errors.Is(err, redis.TxFailedErr) {
		logger.Debug().Msg("product changed while loading, skipping cache insert")
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to inserting product to cache with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
		return
	}
	logger.Trace().Msg("inserted product to cache")
}

// invalidate bumps the version and drops the cached entry. A failed delete only
// leaves a stale entry until its ttl runs out.
func (cc *CachedCatalog) invalidate(c context.Context, id uuid.UUID) {
	cacheKey := productCacheKey(id)
	versionKey := productVersionKey(id)
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "CachedCatalog invalidate").
		Str(constants.KEY_PROCESS, "deleting product from cache").
		Str(constants.KEY_CACHE_KEY, cacheKey).
		Logger()

	_, err := cc.cache.TxPipelined(c, func(pipe redis.Pipeliner) error {
		pipe.Incr(c, versionKey)
		pipe.Expire(c, versionKey, VERSION_TTL)
		pipe.Del(c, cacheKey)
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed deleting product from cache with error=%w", err)
		logger.Warn().Err(err).Msg(err.Error())
		return
	}
	logger.Trace().Msg("deleted product from cache")
}
