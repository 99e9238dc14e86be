package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the process configuration
type Config struct {
	Port             string  `mapstructure:"port" validate:"required"`
	DBDriver         string  `mapstructure:"db_driver" validate:"oneof=sqlite postgres"`
	DBDSN            string  `mapstructure:"db_dsn" validate:"required"`
	JWTSecret        string  `mapstructure:"jwt_secret"`
	LogLevel         string  `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst" validate:"gte=1"`
	ModelCacheSize   int     `mapstructure:"model_cache_size" validate:"gte=1"`
	TransformWorkers int     `mapstructure:"transform_workers" validate:"gte=0"`
}

// Load reads defaults, an optional config file from ./ or ./data/ and the
// environment, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", ":8080")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "./data/trips.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("model_cache_size", 16)
	v.SetDefault("transform_workers", 4)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./data/")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
