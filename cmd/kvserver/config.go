package main

import (
	"errors"
	"fmt"

	"github.com/josenovais97/distributed-systems/pkg/admin"
	"github.com/josenovais97/distributed-systems/pkg/server"
)

// Config is the kvserver configuration, read from the environment and an
// optional .env file.
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	Capacity   int `env:"KV_CAPACITY" envDefault:"2"`
	BcryptCost int `env:"KV_BCRYPT_COST" envDefault:"10"`

	AdminEnabled bool `env:"KV_ADMIN_ENABLED" envDefault:"true"`

	Server server.Config
	Admin  admin.Config
}

var errInvalidCapacity = errors.New("KV_CAPACITY must be at least 1")

func (c *Config) Validate() error {
	var errs []error
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("%w, got %d", errInvalidCapacity, c.Capacity))
	}
	if c.Server.MaxValueSize < 0 || c.Server.MaxBatchSize < 0 {
		errs = append(errs, errors.New("KV_MAX_VALUE_SIZE and KV_MAX_BATCH_SIZE must not be negative"))
	}
	switch c.LogFormat {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (c *Config) adminEnabled() bool {
	return c.AdminEnabled && c.Admin.Addr != ""
}
