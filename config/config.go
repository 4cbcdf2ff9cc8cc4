// Package config loads process configuration with viper and the tile
// palette from YAML.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/milk9111/tilecanvas/logging"
	"github.com/milk9111/tilecanvas/persist"
	"github.com/milk9111/tilecanvas/session"
	"github.com/milk9111/tilecanvas/tilemap"
)

// EnvPrefix prefixes environment overrides, e.g. TILECANVAS_SERVER_ADDR.
const EnvPrefix = "TILECANVAS"

type Canvas struct {
	ID              string `mapstructure:"id"`
	Author          string `mapstructure:"author"`
	TileSize        int    `mapstructure:"tile_size"`
	Width           int    `mapstructure:"width"`
	Height          int    `mapstructure:"height"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	Palette         string `mapstructure:"palette"`
	WatchPalette    bool   `mapstructure:"watch_palette"`
	StrictPalette   bool   `mapstructure:"strict_palette"`
	PersistRemote   bool   `mapstructure:"persist_remote"`
	HistoryCapacity int    `mapstructure:"history_capacity"`
	BatchSize       int    `mapstructure:"batch_size"`
}

type Server struct {
	Addr         string        `mapstructure:"addr"`
	Mode         string        `mapstructure:"mode"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	FlushEvery   time.Duration `mapstructure:"flush_every"`
	ShutdownWait time.Duration `mapstructure:"shutdown_wait"`
}

type Config struct {
	Canvas Canvas         `mapstructure:"canvas"`
	Limits session.Limits `mapstructure:"limits"`
	Store  persist.Config `mapstructure:"store"`
	Server Server         `mapstructure:"server"`
	Log    logging.Config `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	meta := tilemap.DefaultMeta()
	limits := session.DefaultLimits()

	v.SetDefault("canvas.id", "")
	v.SetDefault("canvas.author", "local")
	v.SetDefault("canvas.width", 0)
	v.SetDefault("canvas.height", 0)
	v.SetDefault("canvas.palette", "")
	v.SetDefault("canvas.strict_palette", false)
	v.SetDefault("canvas.persist_remote", false)
	v.SetDefault("canvas.tile_size", meta.TileSize)
	v.SetDefault("canvas.chunk_size", meta.ChunkSize)
	v.SetDefault("canvas.watch_palette", true)
	v.SetDefault("canvas.history_capacity", 50)
	v.SetDefault("canvas.batch_size", 100)

	v.SetDefault("limits.max_region_tiles", limits.MaxRegionTiles)
	v.SetDefault("limits.max_generate_dim", limits.MaxGenerateDim)
	v.SetDefault("limits.max_fill_tiles", limits.MaxFillTiles)
	v.SetDefault("limits.max_brush_size", limits.MaxBrushSize)

	v.SetDefault("store.driver", persist.DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("store.cache_tiles", 1<<16)
	v.SetDefault("store.cache_ttl", persist.DefaultCacheTTL)
	v.SetDefault("store.queue_size", persist.DefaultQueueSize)
	v.SetDefault("store.timeout", 10*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.flush_every", 2*time.Second)
	v.SetDefault("server.shutdown_wait", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatText)
	v.SetDefault("log.file", "")
	v.SetDefault("log.compress", false)
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
}

// Load reads .env (if present), then path or ./tilecanvas.yaml (if present),
// then TILECANVAS_* environment variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tilecanvas")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Meta builds the tilemap meta for the configured canvas.
func (c *Config) Meta(p tilemap.Palette) (tilemap.Meta, error) {
	m := tilemap.DefaultMeta()
	if c.Canvas.TileSize > 0 {
		m.TileSize = c.Canvas.TileSize
	}
	if c.Canvas.ChunkSize > 0 {
		m.ChunkSize = c.Canvas.ChunkSize
	}
	m.Width, m.Height = c.Canvas.Width, c.Canvas.Height
	m.Palette = p.Clone()
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("config: %w", err)
	}
	return m, nil
}

// SessionOptions maps the configuration onto session options. The backend,
// logger and meta are supplied by the caller.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		CanvasID:        c.Canvas.ID,
		Author:          c.Canvas.Author,
		QueueSize:       c.Store.QueueSize,
		CommitTimeout:   c.Store.Timeout,
		BatchSize:       c.Canvas.BatchSize,
		HistoryCapacity: c.Canvas.HistoryCapacity,
		Limits:          c.Limits,
		StrictPalette:   c.Canvas.StrictPalette,
		PersistRemote:   c.Canvas.PersistRemote,
	}
}
