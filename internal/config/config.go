// Package config loads server configuration from file, environment,
// and defaults using Viper, the way the rest of this codebase's
// ambient stack is configured.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/prn-tf/castore/internal/chunk"
)

// Config is the fully resolved server configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Chunking ChunkingConfig
	Cache    CacheConfig
	Logging  LoggingConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StorageConfig controls the filestore's size thresholds and which KV
// backend persists it.
type StorageConfig struct {
	InlineSize  uint64
	ChunkSize   uint64
	SegmentSize uint64

	// Backend selects the KV keyspace implementation: "memory",
	// "sqlite", or "postgres".
	Backend string

	// SqlitePath is the database file path when Backend is "sqlite".
	SqlitePath string

	// PostgresDSN is the connection string when Backend is "postgres".
	PostgresDSN string
}

// ChunkingConfig selects and parameterizes the chunking strategy used
// by the streaming upload path.
type ChunkingConfig struct {
	// Strategy is one of "none", "fixed", "cdc".
	Strategy string

	FixedSize int

	CdcMinSize int
	CdcAvgSize int
	CdcMaxSize int
}

// Resolve converts the configured chunking strategy into a
// chunk.Strategy value.
func (c ChunkingConfig) Resolve() (chunk.Strategy, error) {
	switch strings.ToLower(c.Strategy) {
	case "", "cdc":
		if c.CdcMinSize == 0 && c.CdcAvgSize == 0 && c.CdcMaxSize == 0 {
			return chunk.DefaultCdc(), nil
		}
		return chunk.Cdc(c.CdcMinSize, c.CdcAvgSize, c.CdcMaxSize), nil
	case "fixed":
		return chunk.Fixed(c.FixedSize), nil
	case "none":
		return chunk.None(), nil
	default:
		return chunk.Strategy{}, fmt.Errorf("config: unknown chunking strategy %q", c.Strategy)
	}
}

// CacheConfig controls the optional Redis read-through chunk cache.
// Leaving RedisAddr empty disables it; the store then always reads
// chunk bytes straight from the segment store.
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

// LoggingConfig controls zerolog's global level and format.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from built-in defaults, then configPath (if
// non-empty), then the environment (prefixed CASTORE_), each
// overriding the last, matching viper's standard precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("storage.inline_size", 256)
	v.SetDefault("storage.chunk_size", 8*1024*1024)
	v.SetDefault("storage.segment_size", 1<<30)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.sqlite_path", "castore.db")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("chunking.strategy", "cdc")
	v.SetDefault("chunking.fixed_size", 4*1024*1024)
	v.SetDefault("chunking.cdc_min_size", chunk.DefaultMinSize)
	v.SetDefault("chunking.cdc_avg_size", chunk.DefaultAvgSize)
	v.SetDefault("chunking.cdc_max_size", chunk.DefaultMaxSize)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)

	v.SetEnvPrefix("castore")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
		},
		Storage: StorageConfig{
			InlineSize:  v.GetUint64("storage.inline_size"),
			ChunkSize:   v.GetUint64("storage.chunk_size"),
			SegmentSize: v.GetUint64("storage.segment_size"),
			Backend:     v.GetString("storage.backend"),
			SqlitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Chunking: ChunkingConfig{
			Strategy:   v.GetString("chunking.strategy"),
			FixedSize:  v.GetInt("chunking.fixed_size"),
			CdcMinSize: v.GetInt("chunking.cdc_min_size"),
			CdcAvgSize: v.GetInt("chunking.cdc_avg_size"),
			CdcMaxSize: v.GetInt("chunking.cdc_max_size"),
		},
		Cache: CacheConfig{
			RedisAddr: v.GetString("cache.redis_addr"),
			TTL:       v.GetDuration("cache.ttl"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Pretty: v.GetBool("logging.pretty"),
		},
	}

	return cfg, nil
}
