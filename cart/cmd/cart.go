package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/controller"
	"github.com/Alturino/storefront/cart/internal/metric"
	"github.com/Alturino/storefront/cart/internal/otel"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/lock"
	"github.com/Alturino/storefront/internal/middleware"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/product/pkg/client"
)

const catalogTimeout = 5 * time.Second

func RunCartService(c context.Context) {
	c, span := otel.Tracer.Start(c, "RunCartService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_CART_SERVICE).
		Str(constants.KEY_TAG, "main RunCartService").
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.Get(c, constants.APP_CART_SERVICE)
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := inOtel.InitOtelSdk(c, constants.APP_CART_SERVICE, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		if err := inOtel.ShutdownOtel(context.WithoutCancel(c), otelShutdowns); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing storage").Logger()
	logger.Info().Msg("initializing storage")
	c = logger.WithContext(c)
	stores, err := infra.NewStores(c, cfg)
	if err != nil {
		err = fmt.Errorf("failed initializing storage with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down storage")
		stores.Close(context.WithoutCancel(c))
		logger.Info().Msg("shutdown storage")
	}()
	logger.Info().Msg("initialized storage")

	var cache *redis.Client
	if cfg.Cart.Lock == config.LOCK_REDIS || cfg.Catalog.CacheTTL > 0 {
		logger = logger.With().Str(constants.KEY_PROCESS, "initializing cache").Logger()
		logger.Info().Msg("initializing cache")
		c = logger.WithContext(c)
		cache = infra.NewCacheClient(c, cfg.Cache)
		defer func() {
			logger.Info().Msg("shutting down cache")
			if err := cache.Close(); err != nil {
				err = fmt.Errorf("failed shutting down cache with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return
			}
			logger.Info().Msg("shutdown cache")
		}()
		logger.Info().Msg("initialized cache")
	}

	logger = logger.With().
		Str(constants.KEY_PROCESS, "initializing catalog").
		Str("source", cfg.Catalog.Source).
		Logger()
	logger.Info().Msg("initializing catalog")
	var catalog repository.CatalogRepository
	switch cfg.Catalog.Source {
	case config.CATALOG_DATABASE:
		catalog = stores.Catalog
	case config.CATALOG_PRODUCT_SERVICE:
		catalog = client.NewHTTPCatalog(cfg.Catalog.URL, catalogTimeout)
	default:
		err = fmt.Errorf("failed initializing catalog with error=unknown source %q", cfg.Catalog.Source)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	if cache != nil && cfg.Catalog.CacheTTL > 0 {
		catalog = repository.NewCachedCatalog(catalog, cache, cfg.Catalog.CacheTTL)
	}
	logger.Info().Msg("initialized catalog")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing locker").Str("lock", cfg.Cart.Lock).Logger()
	logger.Info().Msg("initializing locker")
	var locker lock.Locker
	switch cfg.Cart.Lock {
	case config.LOCK_REDIS:
		locker = lock.NewRedisLocker(cache, cfg.Cart.LockTTL)
	case config.LOCK_MEMORY:
		locker = lock.NewKeyedMutex()
	default:
		err = fmt.Errorf("failed initializing locker with error=unknown lock %q", cfg.Cart.Lock)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("initialized locker")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing cart service").Logger()
	logger.Info().Msg("initializing cart service")
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartService := service.NewCartService(
		stores.Carts,
		catalog,
		locker,
		cfg.Cart,
		metric.NewCartMetrics(registry),
	)
	logger.Info().Msg("initialized cart service")

	logger = logger.With().Str(constants.KEY_PROCESS, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := infra.NewRouter(constants.APP_CART_SERVICE, registry)
	controller.AttachCartController(router, cartService, middleware.Auth(cfg.Application.SecretKey))
	logger.Info().Msg("initialized router")

	c = logger.WithContext(c)
	if err = infra.Serve(c, cfg.Application, router); err != nil {
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
}
