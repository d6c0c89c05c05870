package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tavola-system/internal/core"
	"tavola-system/internal/database"
)

const GORM_WRITE_RETRIES = 5

var errStaleVersion = errors.New("stale kv version")

// GormStore keeps every collection as one row in kv_entries and does
// optimistic concurrency on the version column inside a transaction.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var entry database.KVEntry
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv read %s: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *GormStore) Write(ctx context.Context, key string, update UpdateFunc) error {
	return s.WriteMulti(ctx, []string{key}, func(current map[string][]byte) (map[string][]byte, error) {
		next, err := update(current[key])
		if err != nil {
			return nil, err
		}
		return map[string][]byte{key: next}, nil
	})
}

func (s *GormStore) WriteMulti(ctx context.Context, keys []string, update MultiUpdateFunc) error {
	for attempt := 0; attempt < GORM_WRITE_RETRIES; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current := make(map[string][]byte, len(keys))
			versions := make(map[string]int64, len(keys))
			for _, key := range keys {
				var entry database.KVEntry
				err := tx.First(&entry, "key = ?", key).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					current[key] = nil
					continue
				}
				if err != nil {
					return fmt.Errorf("kv read %s: %w", key, err)
				}
				current[key] = entry.Value
				versions[key] = entry.Version
			}

			next, err := update(current)
			if err != nil {
				return err
			}

			for key, raw := range next {
				version, existed := versions[key]
				if !existed {
					res := tx.Clauses(clause.OnConflict{DoNothing: true}).
						Create(&database.KVEntry{Key: key, Value: raw, Version: 1})
					if res.Error != nil {
						return fmt.Errorf("kv insert %s: %w", key, res.Error)
					}
					if res.RowsAffected == 0 {
						return errStaleVersion
					}
					continue
				}
				res := tx.Model(&database.KVEntry{}).
					Where("key = ? AND version = ?", key, version).
					Updates(map[string]interface{}{"value": raw, "version": version + 1})
				if res.Error != nil {
					return fmt.Errorf("kv update %s: %w", key, res.Error)
				}
				if res.RowsAffected == 0 {
					return errStaleVersion
				}
			}
			return nil
		})
		if errors.Is(err, errStaleVersion) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: keys %v", core.ErrConflict, keys)
}
