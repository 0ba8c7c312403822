// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct parsing:
//
//	type ServiceConfig struct {
//	    Capacity int    `env:"KV_CAPACITY" envDefault:"2"`
//	    Addr     string `env:"KV_ADDR" envDefault:":12345"`
//	}
//
//	func (c *ServiceConfig) Validate() error { ... }
//
//	var cfg ServiceConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Each struct type is parsed once and cached for the life of the process.
// Types whose pointer implements Validator are checked after parsing, and a
// failing value is returned as ErrInvalidConfig and never cached.
//
// ResetCache and ForceReload exist for tests that change the environment.
package config
