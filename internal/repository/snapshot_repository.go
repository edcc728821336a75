package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"packing-planner/internal/model"
)

// Storage keys match the original browser build so an exported localStorage
// dump can be imported as-is.
const (
	keyCategories = "pp_categories"
	keyLists      = "pp_lists"
	keyHolidays   = "pp_holidays"
)

// Snapshot is one serialized top-level collection.
type Snapshot struct {
	Key       string `gorm:"primaryKey"`
	Data      []byte
	UpdatedAt time.Time
}

// SnapshotRepository persists the three top-level collections as
// independently keyed JSON blobs. Every save is a full overwrite; there is
// no versioning or partial-write recovery.
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Load hydrates the collections at startup. A missing categories blob yields
// the built-in taxonomy; missing lists/holidays yield empty collections.
func (r *SnapshotRepository) Load(ctx context.Context) ([]model.CategoryDef, []model.PackingList, []model.Holiday, error) {
	var categories []model.CategoryDef
	found, err := r.loadBlob(ctx, keyCategories, &categories)
	if err != nil {
		return nil, nil, nil, err
	}
	if !found || len(categories) == 0 {
		categories = model.DefaultCategories()
	}

	lists := []model.PackingList{}
	if _, err := r.loadBlob(ctx, keyLists, &lists); err != nil {
		return nil, nil, nil, err
	}

	holidays := []model.Holiday{}
	if _, err := r.loadBlob(ctx, keyHolidays, &holidays); err != nil {
		return nil, nil, nil, err
	}

	return categories, lists, holidays, nil
}

// Save overwrites all three blobs unconditionally.
func (r *SnapshotRepository) Save(ctx context.Context, categories []model.CategoryDef, lists []model.PackingList, holidays []model.Holiday) error {
	if err := r.saveBlob(ctx, keyCategories, categories); err != nil {
		return err
	}
	if err := r.saveBlob(ctx, keyLists, lists); err != nil {
		return err
	}
	return r.saveBlob(ctx, keyHolidays, holidays)
}

func (r *SnapshotRepository) loadBlob(ctx context.Context, key string, out interface{}) (bool, error) {
	var snap Snapshot
	err := r.db.WithContext(ctx).First(&snap, "key = ?", key).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(snap.Data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *SnapshotRepository) saveBlob(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	snap := Snapshot{Key: key, Data: data, UpdatedAt: time.Now()}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&snap).Error; err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
