package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uniedit/enhancer/internal/port/outbound"
)

// kvEntry is a quota or credit value row.
type kvEntry struct {
	Key       string     `gorm:"primaryKey;type:varchar(255)"`
	Value     string     `gorm:"type:text;not null"`
	ExpiresAt *time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName returns the table name.
func (kvEntry) TableName() string {
	return "kv_entries"
}

// kvStore implements outbound.KVStorePort on a single Postgres table.
type kvStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewKVStore creates a KV store adapter.
func NewKVStore(db *gorm.DB) outbound.KVStorePort {
	return &kvStore{db: db, now: time.Now}
}

// AutoMigrate creates the kv_entries table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&kvEntry{})
}

func (s *kvStore) Get(ctx context.Context, key string) (string, error) {
	var row kvEntry
	err := s.lookup(s.db.WithContext(ctx), key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", outbound.ErrKeyNotFound
		}
		return "", err
	}
	return row.Value, nil
}

func (s *kvStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now().UTC()
	row := kvEntry{Key: key, Value: value, UpdatedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		row.ExpiresAt = &exp
	}
	return s.upsert(s.db.WithContext(ctx), &row).Error
}

func (s *kvStore) lookup(tx *gorm.DB, key string) *gorm.DB {
	return tx.Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, s.now().UTC())
}

func (s *kvStore) upsert(tx *gorm.DB, row *kvEntry) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(row)
}

var _ outbound.KVStorePort = (*kvStore)(nil)
