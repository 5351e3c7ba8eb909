package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"eqledger"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	// Archive is the optional Postgres backing for committed records.
	// Leaving Host empty runs the engine memory-only.
	Archive struct {
		Host     string `envconfig:"ARCHIVE_DB_HOST" default:""`
		Port     int    `envconfig:"ARCHIVE_DB_PORT" default:"5432"`
		User     string `envconfig:"ARCHIVE_DB_USER" default:"postgres"`
		Password string `envconfig:"ARCHIVE_DB_PASSWORD" default:""`
		Name     string `envconfig:"ARCHIVE_DB_NAME" default:"eqledger"`
		Migrate  bool   `envconfig:"ARCHIVE_DB_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		// JWTSecret enables bearer authentication when set.
		JWTSecret string `envconfig:"AUTH_JWT_SECRET" default:""`
	}
}

func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Host != ""
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Archive.User, c.Archive.Password, c.Archive.Host, c.Archive.Port, c.Archive.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
