package infra

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
)

// Stores holds the cart and catalog repositories for the configured storage driver.
type Stores struct {
	Carts   repository.CartRepository
	Catalog repository.CatalogRepository
	closers []func(context.Context)
}

// Close releases the underlying connections in reverse order of creation.
func (s *Stores) Close(c context.Context) {
	for _, closeFn := range slices.Backward(s.closers) {
		closeFn(c)
	}
}

func NewStores(c context.Context, cfg *config.Config) (*Stores, error) {
	c, span := otel.Tracer.Start(c, "main NewStores")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "main NewStores").
		Str(constants.KEY_PROCESS, "initializing storage").
		Str("driver", cfg.Storage.Driver).
		Logger()

	logger.Info().Msg("initializing storage")
	c = logger.WithContext(c)
	stores := &Stores{}
	switch cfg.Storage.Driver {
	case config.STORAGE_POSTGRES:
		pool := NewDatabaseClient(c, cfg.Database)
		stores.closers = append(stores.closers, func(context.Context) { pool.Close() })
		if err := MigrateUp(c, pool, cfg.Database); err != nil {
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			stores.Close(c)
			return nil, err
		}
		stores.Carts = repository.NewPostgresCartRepository(pool)
		stores.Catalog = repository.NewPostgresCatalogRepository(pool)
	case config.STORAGE_MONGO:
		client, db := NewMongoClient(c, cfg.Mongo)
		stores.closers = append(stores.closers, func(c context.Context) {
			if err := client.Disconnect(c); err != nil {
				logger.Error().Err(err).Msgf("failed disconnecting mongo with error=%s", err.Error())
			}
		})
		carts := repository.NewMongoCartRepository(db)
		if err := carts.EnsureIndexes(c); err != nil {
			err = fmt.Errorf("failed ensuring cart indexes with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			stores.Close(c)
			return nil, err
		}
		stores.Carts = carts
		stores.Catalog = repository.NewMongoCatalogRepository(db)
	case config.STORAGE_MEMORY:
		stores.Carts = repository.NewMemoryCartRepository()
		stores.Catalog = repository.NewMemoryCatalogRepository()
	default:
		err := fmt.Errorf("failed initializing storage with error=unknown driver %q", cfg.Storage.Driver)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("initialized storage")
	return stores, nil
}
