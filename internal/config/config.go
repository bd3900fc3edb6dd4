package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/constants"
)

type Application struct {
	Env       string `mapstructure:"env"        json:"env"`
	Host      string `mapstructure:"host"       json:"host"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	LogPath   string `mapstructure:"log_path"   json:"log_path"`
	Port      int    `mapstructure:"port"       json:"port"`
}

type Database struct {
	Name           string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Mongo struct {
	URI      string `mapstructure:"uri"      json:"-"`
	Database string `mapstructure:"database" json:"database"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// Storage selects the document store backing carts and the catalog.
type Storage struct {
	Driver string `mapstructure:"driver" json:"driver"`
}

type Catalog struct {
	Source   string        `mapstructure:"source"    json:"source"`
	URL      string        `mapstructure:"url"       json:"url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`
}

type Cart struct {
	Lock           string        `mapstructure:"lock"             json:"lock"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"         json:"lock_ttl"`
	LegacyIDSwap   bool          `mapstructure:"legacy_id_swap"   json:"legacy_id_swap"`
	MaxSaveRetries int           `mapstructure:"max_save_retries" json:"max_save_retries"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Mongo       `mapstructure:"mongo"       json:"mongo"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Storage     `mapstructure:"storage"     json:"storage"`
	Catalog     `mapstructure:"catalog"     json:"catalog"`
	Cart        `mapstructure:"cart"        json:"cart"`
}

const (
	STORAGE_POSTGRES = "postgres"
	STORAGE_MONGO    = "mongo"
	STORAGE_MEMORY   = "memory"

	CATALOG_DATABASE        = "database"
	CATALOG_PRODUCT_SERVICE = "product-service"

	LOCK_MEMORY = "memory"
	LOCK_REDIS  = "redis"
)

var (
	once   sync.Once
	config *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.env", "production")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("db.migration_path", "file://migrations")
	v.SetDefault("db.max_connections", 10)
	v.SetDefault("db.min_connections", 2)
	v.SetDefault("storage.driver", STORAGE_POSTGRES)
	v.SetDefault("catalog.source", CATALOG_DATABASE)
	v.SetDefault("catalog.cache_ttl", time.Minute)
	v.SetDefault("cart.lock", LOCK_REDIS)
	v.SetDefault("cart.lock_ttl", 10*time.Second)
	v.SetDefault("cart.legacy_id_swap", true)
	v.SetDefault("cart.max_save_retries", 3)
}

// Get reads env/<filename>.yaml once and returns the same config on every call.
func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "config Get").
			Str(constants.KEY_PROCESS, "init config").
			Str("filename", filename).
			Logger()

		cfg, err := Load(filename, "./env")
		if err != nil {
			err = fmt.Errorf("failed loading config with error=%w", err)
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
		logger = logger.With().Any(constants.KEY_CONFIG, cfg).Logger()
		logger.Info().Msg("loaded config")
	})
	return config
}

// Load reads a single config file without touching the process-wide config.
func Load(filename string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(filename)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed reading config with error=%w", err)
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed unmarshaling config with error=%w", err)
	}
	return &cfg, nil
}
