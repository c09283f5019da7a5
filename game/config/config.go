package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every server setting. Fields are populated from the
// environment; zero values fall back to the declared defaults.
type Config struct {
	// Host is the bind address. Empty binds all interfaces.
	Host string `env:"HOST"`

	// Port is the HTTP listen port.
	Port int `env:"PORT" envDefault:"3000"`

	// PublicURL is the externally reachable base URL, encoded into join QR
	// codes. When ngrok is enabled the tunnel URL takes precedence.
	PublicURL string `env:"PUBLIC_URL"`

	// ReplayReturnDelay is how long a finished game waits for replay votes
	// before returning everyone to the lobby.
	ReplayReturnDelay time.Duration `env:"REPLAY_RETURN_DELAY" envDefault:"30s"`

	// IdleGrace is how long an empty session survives before the reaper
	// deletes it.
	IdleGrace time.Duration `env:"IDLE_GRACE" envDefault:"5s"`

	// Debug enables verbose logging.
	Debug bool `env:"DEBUG"`

	// NgrokTunnel exposes the server through an ngrok tunnel so phones outside
	// the local network can join.
	NgrokTunnel bool `env:"NGROK_TUNNEL"`

	// NgrokDomain is an optional reserved ngrok domain.
	NgrokDomain string `env:"NGROK_DOMAIN"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReplayReturnDelay <= 0 {
		return fmt.Errorf("replay return delay must be positive, got %s", c.ReplayReturnDelay)
	}
	if c.IdleGrace <= 0 {
		return fmt.Errorf("idle grace must be positive, got %s", c.IdleGrace)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
