package persist

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/milk9111/tilecanvas/tilemap"
)

// TileRow is one persisted tile. The path parts form the primary key.
type TileRow struct {
	CanvasID string `gorm:"column:canvas_id;type:varchar(64);primaryKey"`
	ChunkX   int    `gorm:"column:chunk_x;primaryKey;autoIncrement:false"`
	ChunkY   int    `gorm:"column:chunk_y;primaryKey;autoIncrement:false"`
	LocalX   int    `gorm:"column:local_x;primaryKey;autoIncrement:false"`
	LocalY   int    `gorm:"column:local_y;primaryKey;autoIncrement:false"`
	Type     string `gorm:"column:t;type:varchar(64);not null"`
	Color    string `gorm:"column:c;type:varchar(16)"`
	Variant  *int   `gorm:"column:v"`
	Author   string `gorm:"column:by_user;type:varchar(64)"`
	TS       int64  `gorm:"column:ts;not null"`
}

func (TileRow) TableName() string { return "tile_records" }

// rowFor converts an update into a row; the bool is false for tombstones.
func rowFor(u Update) (TileRow, bool, error) {
	canvasID, cc, err := ParseTilePath(u.Path)
	if err != nil {
		return TileRow{}, false, err
	}
	row := TileRow{CanvasID: canvasID, ChunkX: cc.ChunkX, ChunkY: cc.ChunkY, LocalX: cc.LocalX, LocalY: cc.LocalY}
	if u.Record == nil {
		return row, false, nil
	}
	row.Type = u.Record.T
	row.Color = u.Record.C
	row.Variant = u.Record.V
	row.Author = u.Record.By
	row.TS = u.Record.TS
	return row, true, nil
}

func (r TileRow) chunkTile() tilemap.ChunkTile {
	rec := Record{T: r.Type, C: r.Color, V: r.Variant, By: r.Author, TS: r.TS}
	return tilemap.ChunkTile{LocalX: r.LocalX, LocalY: r.LocalY, Tile: rec.Tile()}
}

// SQLBackend stores tiles in MySQL through gorm.
type SQLBackend struct {
	db *gorm.DB
}

// OpenMySQL connects to dsn. Gorm's own logger is silenced; callers log
// failures from the returned errors.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("persist: open mysql: %w", err)
	}
	return db, nil
}

// NewSQLBackend wraps db, creating the table when migrate is set.
func NewSQLBackend(db *gorm.DB, migrate bool) (*SQLBackend, error) {
	if migrate {
		if err := db.AutoMigrate(&TileRow{}); err != nil {
			return nil, fmt.Errorf("persist: migrate: %w", err)
		}
	}
	return &SQLBackend{db: db}, nil
}

// Commit applies all updates in one transaction.
func (b *SQLBackend) Commit(ctx context.Context, updates []Update) error {
	var (
		upserts []TileRow
		deletes []TileRow
	)
	for _, u := range updates {
		row, live, err := rowFor(u)
		if err != nil {
			return err
		}
		if live {
			upserts = append(upserts, row)
		} else {
			deletes = append(deletes, row)
		}
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(upserts) > 0 {
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&upserts).Error
			if err != nil {
				return fmt.Errorf("persist: upsert %d tiles: %w", len(upserts), err)
			}
		}
		for _, row := range deletes {
			err := tx.Where("canvas_id = ? AND chunk_x = ? AND chunk_y = ? AND local_x = ? AND local_y = ?",
				row.CanvasID, row.ChunkX, row.ChunkY, row.LocalX, row.LocalY).
				Delete(&TileRow{}).Error
			if err != nil {
				return fmt.Errorf("persist: delete tile: %w", err)
			}
		}
		return nil
	})
}

func (b *SQLBackend) LoadChunk(ctx context.Context, canvasID string, cx, cy int) ([]tilemap.ChunkTile, error) {
	var rows []TileRow
	err := b.db.WithContext(ctx).
		Where("canvas_id = ? AND chunk_x = ? AND chunk_y = ?", canvasID, cx, cy).
		Order("local_y, local_x").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("persist: load chunk %s: %w", ChunkPath(canvasID, cx, cy), err)
	}
	out := make([]tilemap.ChunkTile, len(rows))
	for i, r := range rows {
		out[i] = r.chunkTile()
	}
	return out, nil
}

func (b *SQLBackend) Chunks(ctx context.Context, canvasID string) ([]tilemap.ChunkKey, error) {
	var rows []struct {
		ChunkX int
		ChunkY int
	}
	err := b.db.WithContext(ctx).
		Model(&TileRow{}).
		Distinct("chunk_x", "chunk_y").
		Where("canvas_id = ?", canvasID).
		Order("chunk_y, chunk_x").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("persist: list chunks of %s: %w", canvasID, err)
	}
	keys := make([]tilemap.ChunkKey, len(rows))
	for i, r := range rows {
		keys[i] = tilemap.ChunkKey{X: r.ChunkX, Y: r.ChunkY}
	}
	return keys, nil
}

func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
