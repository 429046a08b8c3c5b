/*
main.go - Application entry point

PURPOSE:
  Starts the leave management server: loads configuration, opens the
  SQLite store, wires the accounting engine and HTTP router, and shuts
  down gracefully on SIGINT/SIGTERM.

COMMAND-LINE FLAGS:
  -config  Path to optional YAML config file (default: config.yaml)
  -port    Override the configured HTTP port
  -db      Override the configured SQLite path; ":memory:" works

SHUTDOWN:
  On signal: stop accepting connections, drain active requests for up
  to 30s, close the database, exit.

SEE ALSO:
  - config/config.go: Configuration and environment overrides
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log := newLogger(cfg)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	engine := leave.NewEngine(store, log)
	handler := api.NewHandler(engine, store, log, cfg.Leave.DefaultBalance)
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("db", cfg.Database.Path).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout)
	if cfg.Logging.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
