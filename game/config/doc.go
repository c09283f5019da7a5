// Package config provides configuration management for the Dual Screen Racer
// server.
//
// The config package handles:
//   - Loading server settings from environment variables
//   - Default values for every setting
//   - Validation of timer durations
//
// Configuration Sources:
//
// Settings come from the environment, optionally seeded from a .env file at
// startup. Every variable has a default, so a bare `racer serve` works out of
// the box.
//
// Variables:
//
//   - HOST: bind address (default empty, all interfaces)
//   - PORT: listen port (default 3000)
//   - PUBLIC_URL: externally reachable base URL used in join QR codes
//   - REPLAY_RETURN_DELAY: how long a finished game waits before returning to
//     the lobby on its own (default 30s)
//   - IDLE_GRACE: how long an empty session survives before deletion
//     (default 5s)
//   - DEBUG: verbose logging
//   - NGROK_TUNNEL: expose the server through an ngrok tunnel
//   - NGROK_DOMAIN: reserved ngrok domain to claim, optional
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	addr := cfg.Addr()
package config
