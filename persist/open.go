package persist

import (
	"fmt"
	"time"
)

// Config selects and tunes a backend.
type Config struct {
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	AutoMigrate bool          `mapstructure:"auto_migrate"`
	CacheTiles  int64         `mapstructure:"cache_tiles"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	QueueSize   int           `mapstructure:"queue_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

// Open builds the configured backend wrapped in a chunk cache.
func Open(cfg Config) (*Cached, error) {
	var b Backend
	switch cfg.Driver {
	case "", DriverMemory:
		b = NewMemoryBackend()
	case DriverMySQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("persist: mysql driver needs a dsn")
		}
		db, err := OpenMySQL(cfg.DSN)
		if err != nil {
			return nil, err
		}
		sb, err := NewSQLBackend(db, cfg.AutoMigrate)
		if err != nil {
			return nil, err
		}
		b = sb
	default:
		return nil, fmt.Errorf("persist: unknown driver %q", cfg.Driver)
	}
	c, err := NewCached(b, CacheConfig{MaxTiles: cfg.CacheTiles, TTL: cfg.CacheTTL})
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return c, nil
}
