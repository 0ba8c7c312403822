package server

import (
	"time"

	"github.com/josenovais97/distributed-systems/pkg/auth"
)

type Config struct {
	Addr            string        `env:"KV_ADDR" envDefault:":12345"`             // Addr is the TCP address the server listens on.
	IdleTimeout     time.Duration `env:"KV_IDLE_TIMEOUT" envDefault:"10m"`        // IdleTimeout bounds the wait for a client's next input. Zero disables it.
	ShutdownTimeout time.Duration `env:"KV_SHUTDOWN_TIMEOUT" envDefault:"5s"`     // ShutdownTimeout is how long open sessions get to log out before being cut.
	MaxValueSize    int           `env:"KV_MAX_VALUE_SIZE" envDefault:"16777216"` // MaxValueSize is the largest value accepted, in bytes.
	MaxBatchSize    int           `env:"KV_MAX_BATCH_SIZE" envDefault:"10000"`    // MaxBatchSize is the most pairs or keys accepted in one batch command.
	LoginAttempts   int           `env:"KV_LOGIN_ATTEMPTS" envDefault:"5"`        // LoginAttempts is how many wrong passwords a host may send before being throttled. Zero disables throttling.
	LoginRefill     time.Duration `env:"KV_LOGIN_REFILL" envDefault:"1m"`         // LoginRefill is how often a throttled host earns one more attempt.
}

// NewFromConfig creates a new Server from the provided Config.
// Only non-zero values from the config are applied.
func NewFromConfig(cfg Config, store Store, gate Admitter, creds Authenticator, opts ...Option) *Server {
	configOpts := make([]Option, 0, 6)

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.IdleTimeout > 0 {
		configOpts = append(configOpts, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	if cfg.MaxValueSize > 0 {
		configOpts = append(configOpts, WithMaxValueSize(cfg.MaxValueSize))
	}
	if cfg.MaxBatchSize > 0 {
		configOpts = append(configOpts, WithMaxBatchSize(cfg.MaxBatchSize))
	}
	if cfg.LoginAttempts > 0 && cfg.LoginRefill > 0 {
		configOpts = append(configOpts, WithLoginThrottle(auth.NewThrottle(cfg.LoginAttempts, cfg.LoginRefill)))
	}

	configOpts = append(configOpts, opts...)

	return New(store, gate, creds, configOpts...)
}
