package admin

import "time"

type Config struct {
	Addr            string        `env:"KV_ADMIN_ADDR" envDefault:":8080"`            // Addr is the admin listen address. Empty disables the admin server.
	ReadTimeout     time.Duration `env:"KV_ADMIN_READ_TIMEOUT" envDefault:"10s"`     // ReadTimeout is the maximum duration for reading a request.
	WriteTimeout    time.Duration `env:"KV_ADMIN_WRITE_TIMEOUT" envDefault:"10s"`    // WriteTimeout is the maximum duration for writing a response.
	ShutdownTimeout time.Duration `env:"KV_ADMIN_SHUTDOWN_TIMEOUT" envDefault:"5s"`  // ShutdownTimeout is the time allowed for graceful shutdown.
}

// NewFromConfig creates a new Server from the provided Config.
// Only non-zero values from the config are applied.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configOpts := make([]Option, 0, 4)

	if cfg.Addr != "" {
		configOpts = append(configOpts, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configOpts = append(configOpts, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configOpts = append(configOpts, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configOpts = append(configOpts, WithShutdownTimeout(cfg.ShutdownTimeout))
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
