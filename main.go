// Command racer starts the Dual Screen Racer server.
//
// It supports two modes:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, the
//     WebSocket relay, and an /mcp HTTP endpoint
//  2. "mcp-stdio" – runs an MCP stdio server backed by an internal HTTP API
//
// Flags control host/port, debug logging, version output, and optional ngrok
// tunneling so phones outside the local network can join.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/dual-screen-racer/api"
	"github.com/wricardo/dual-screen-racer/game/config"
	"github.com/wricardo/dual-screen-racer/game/service"
	"github.com/wricardo/dual-screen-racer/game/session"
	"github.com/wricardo/dual-screen-racer/transport/mcp"
	"github.com/wricardo/dual-screen-racer/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Dual Screen Racer Server"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	cmd := &cli.Command{
		Name:    "racer",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
			&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
			&cli.StringFlag{Name: "public-url", Usage: "Externally reachable base URL for join QR codes"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP server with REST API, WebSocket relay, and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return runHTTPServer(cfg)
				},
			},
			{
				Name:    "mcp-stdio",
				Aliases: []string{"mcp"},
				Usage:   "Run an MCP stdio server backed by an internal HTTP API",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return runStdioMCPWithInternalServer(cfg)
				},
			},
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the environment configuration and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("public-url") {
		cfg.PublicURL = cmd.String("public-url")
	}
	if cmd.Bool("debug") {
		cfg.Debug = true
	}
	if cmd.Bool("ngrok") {
		cfg.NgrokTunnel = true
	}
	if cmd.IsSet("ngrok-domain") {
		cfg.NgrokDomain = cmd.String("ngrok-domain")
	}

	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return cfg, nil
}

// buildStack wires the registry, service, hub, and dispatcher together and
// starts the hub loop.
func buildStack(cfg *config.Config) (service.GameService, *websocket.Hub) {
	registry := session.NewRegistry(nil, session.Options{
		ReplayReturnDelay: cfg.ReplayReturnDelay,
		IdleGrace:         cfg.IdleGrace,
	})
	gameService := service.NewGameService(registry)

	hub := websocket.NewHub()
	dispatcher := websocket.NewDispatcher(gameService, hub)
	hub.SetHandler(dispatcher)
	registry.SetNotifier(dispatcher)
	go hub.Run()

	return gameService, hub
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an
// /mcp proxy endpoint. If ngrok is enabled it also provisions a public tunnel
// before the API server is built, so join QR codes carry the tunnel URL.
func runHTTPServer(cfg *config.Config) error {
	log.Printf("Starting %s v%s", AppName, Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gameService, hub := buildStack(cfg)

	addr := cfg.Addr()
	publicURL := cfg.PublicURL

	var tun ngrok.Tunnel
	if cfg.NgrokTunnel {
		var tunnel ngrokConfig.Tunnel
		if cfg.NgrokDomain != "" {
			tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
			log.Printf("Using custom ngrok domain: %s", cfg.NgrokDomain)
		} else {
			tunnel = ngrokConfig.HTTPEndpoint()
		}

		var err error
		tun, err = ngrok.Listen(ctx, tunnel, ngrok.WithAuthtokenFromEnv())
		if err != nil {
			return fmt.Errorf("failed to start ngrok tunnel: %w", err)
		}
		defer tun.Close()

		log.Printf("Ngrok tunnel established: %s", tun.URL())
		if publicURL == "" {
			publicURL = tun.URL()
		}
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://%s", addr)
	}

	apiServer := api.NewServer(gameService, hub, publicURL)

	// Create MCP client for the /mcp endpoint
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHTTPHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)
		log.Printf("Join URL base: %s", publicURL)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if tun != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := http.Serve(tun, mainRouter); err != nil && err != http.ErrServerClosed {
				log.Printf("Ngrok server error: %v", err)
			}
			log.Println("Ngrok tunnel closed")
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return nil
}

// mcpHTTPHandler proxies one JSON-RPC message per POST to the MCP server.
func mcpHTTPHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server. It starts a minimal
// internal HTTP API bound to a random loopback port and proxies tool calls to
// it.
func runStdioMCPWithInternalServer(cfg *config.Config) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to get available port: %w", err)
	}

	internalAddr := listener.Addr().String()
	log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

	gameService, hub := buildStack(cfg)
	apiServer := api.NewServer(gameService, hub, cfg.PublicURL)

	httpServer := &http.Server{Handler: apiServer}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Internal HTTP server error: %v", err)
		}
	}()

	// Wait a moment for the server to be ready
	time.Sleep(100 * time.Millisecond)

	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", internalAddr))

	log.Println("MCP stdio server ready")
	if err := mcpserver.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
