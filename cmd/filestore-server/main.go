// Package main is the entry point for the castore server: an
// S3-subset HTTP adapter in front of a content-addressed, deduplicating
// file store.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/castore/internal/cache"
	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/config"
	"github.com/prn-tf/castore/internal/filestore"
	"github.com/prn-tf/castore/internal/handler"
	"github.com/prn-tf/castore/internal/kv"
	"github.com/prn-tf/castore/internal/kv/memkv"
	"github.com/prn-tf/castore/internal/kv/pgkv"
	"github.com/prn-tf/castore/internal/kv/sqlitekv"
	"github.com/prn-tf/castore/internal/metrics"
)

// Version information (set at build time).
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting castore server")

	cfg, err := config.Load(os.Getenv("CASTORE_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Logging.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx := context.Background()

	ks, err := openKeyspace(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("failed to open storage backend")
	}
	log.Info().Str("backend", cfg.Storage.Backend).Msg("storage backend ready")

	store, err := filestore.Open(ctx, ks, cfg.Storage.SegmentSize, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open filestore")
	}
	store.WithMetrics(metrics.New(prometheus.DefaultRegisterer))

	if cfg.Cache.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		store.WithCache(cache.New(redisClient, cfg.Cache.TTL, log.Logger))
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("chunk cache ready")
	}

	strategy, err := cfg.Chunking.Resolve()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid chunking configuration")
	}
	chunker := chunk.New(strategy)

	sessionConfig := filestore.Config{
		InlineSize:  cfg.Storage.InlineSize,
		ChunkSize:   cfg.Storage.ChunkSize,
		SegmentSize: cfg.Storage.SegmentSize,
	}
	objectHandler := handler.NewObjectHandler(store, chunker, sessionConfig, log.Logger)
	router := handler.NewRouter(objectHandler, log.Logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}

// openKeyspace opens the kv.Keyspace backend named by cfg.Backend.
func openKeyspace(ctx context.Context, cfg config.StorageConfig) (kv.Keyspace, error) {
	switch cfg.Backend {
	case "", "memory":
		return memkv.New(), nil
	case "sqlite":
		return sqlitekv.Open(ctx, cfg.SqlitePath)
	case "postgres":
		return pgkv.Open(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
