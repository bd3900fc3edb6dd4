package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
)

// runMigrate applies (or with down, reverts) the postgres migrations using the
// database section of env/<configName>.yaml.
func runMigrate(c context.Context, configName string, down bool) error {
	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_APP_NAME, constants.APP_MIGRATE).
		Str(constants.KEY_TAG, "main runMigrate").
		Bool("down", down).
		Logger()

	logger = logger.With().Str(constants.KEY_PROCESS, "init config").Logger()
	logger.Info().Msg("initializing config")
	cfg, err := config.Load(configName, "./env")
	if err != nil {
		err = fmt.Errorf("failed loading config with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if cfg.Storage.Driver != config.STORAGE_POSTGRES {
		logger.Warn().Str("driver", cfg.Storage.Driver).Msg("storage driver is not postgres, migrating anyway")
	}
	logger.Info().Msg("initialized config")

	c = logger.WithContext(c)
	pool := infra.NewDatabaseClient(c, cfg.Database)
	defer pool.Close()
	if down {
		return infra.MigrateDown(c, pool, cfg.Database)
	}
	return infra.MigrateUp(c, pool, cfg.Database)
}
