// Package index maintains a SQLite-backed secondary index of frame
// metadata for fast filtered listings and reporting queries. The JSON
// snapshot store stays the source of truth; the index is derived state
// and can always be rebuilt from it.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/framerhq/framer/internal/store"
	"github.com/framerhq/framer/pkg/models"
)

// FrameRow is the indexed projection of a frame.
type FrameRow struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"index"`
	Status    string `gorm:"index"`
	Owner     string `gorm:"index"`
	ProjectID string `gorm:"index"`
	Score     *int
	UpdatedAt time.Time
	CreatedAt time.Time
}

func (FrameRow) TableName() string { return "frame_index" }

// Index wraps the SQLite database.
type Index struct {
	db *gorm.DB
}

// Open opens (or creates) the index database at path and migrates the
// schema.
func Open(path string) (*Index, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open frame index: %w", err)
	}

	// Single connection prevents sqlite "database is locked" errors.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("frame index pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&FrameRow{}); err != nil {
		return nil, fmt.Errorf("migrate frame index: %w", err)
	}

	log.Info().Str("path", path).Msg("Frame index ready")
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertFrame writes one frame's projection. Callers treat this as
// best-effort: the index lags rather than blocks.
func (i *Index) UpsertFrame(ctx context.Context, frame *models.Frame) error {
	row := toRow(frame)
	err := i.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("index frame %s: %w", frame.ID, err)
	}
	return nil
}

// DeleteFrame removes a frame's projection.
func (i *Index) DeleteFrame(ctx context.Context, id string) error {
	if err := i.db.WithContext(ctx).Delete(&FrameRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("unindex frame %s: %w", id, err)
	}
	return nil
}

// Query lists indexed frames matching the filter, newest first.
func (i *Index) Query(ctx context.Context, filter store.FrameFilter) ([]FrameRow, error) {
	q := i.db.WithContext(ctx).Model(&FrameRow{})
	if filter.Owner != "" {
		q = q.Where("owner = ?", filter.Owner)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if filter.ProjectID != "" {
		q = q.Where("project_id = ?", filter.ProjectID)
	}

	var rows []FrameRow
	if err := q.Order("updated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query frame index: %w", err)
	}
	return rows, nil
}

// StatusCounts reports how many frames sit in each lifecycle status.
func (i *Index) StatusCounts(ctx context.Context) (map[string]int64, error) {
	type bucket struct {
		Status string
		N      int64
	}
	var buckets []bucket
	err := i.db.WithContext(ctx).Model(&FrameRow{}).
		Select("status, count(*) as n").
		Group("status").
		Find(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("count frame index: %w", err)
	}

	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.N
	}
	return counts, nil
}

// Rebuild drops every row and re-projects all frames from the primary
// store. Used at startup and by the retention janitor to heal drift.
func (i *Index) Rebuild(ctx context.Context, frames store.FrameStore) error {
	all, err := frames.ListFrames(ctx, store.FrameFilter{})
	if err != nil {
		return fmt.Errorf("rebuild frame index: %w", err)
	}

	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&FrameRow{}).Error; err != nil {
			return err
		}
		for idx := range all {
			row := toRow(&all[idx])
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rebuild frame index: %w", err)
	}

	log.Info().Int("frames", len(all)).Msg("Frame index rebuilt")
	return nil
}

func toRow(frame *models.Frame) FrameRow {
	row := FrameRow{
		ID:        frame.ID,
		Type:      string(frame.Type),
		Status:    string(frame.Status),
		Owner:     frame.Owner,
		ProjectID: frame.ProjectID,
		UpdatedAt: frame.UpdatedAt,
		CreatedAt: frame.CreatedAt,
	}
	if frame.Evaluation != nil {
		score := frame.Evaluation.Score
		row.Score = &score
	}
	return row
}
