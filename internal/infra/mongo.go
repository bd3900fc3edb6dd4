package infra

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/otel"
)

func NewMongoClient(c context.Context, mongoConfig config.Mongo) (*mongo.Client, *mongo.Database) {
	c, span := otel.Tracer.Start(c, "main NewMongoClient")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(constants.KEY_TAG, "main NewMongoClient").
		Str(constants.KEY_PROCESS, "connecting to mongo").
		Str("database", mongoConfig.Database).
		Logger()

	logger.Info().Msg("connecting to mongo")
	client, err := mongo.Connect(c, options.Client().ApplyURI(mongoConfig.URI))
	if err != nil {
		err = fmt.Errorf("failed connecting to mongo with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}

	logger = logger.With().Str(constants.KEY_PROCESS, "pinging mongo").Logger()
	if err = client.Ping(c, readpref.Primary()); err != nil {
		err = fmt.Errorf("failed pinging mongo with error=%w", err)
		logger.Fatal().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("connected to mongo")
	return client, client.Database(mongoConfig.Database)
}
