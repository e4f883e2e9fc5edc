package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/smallbiznis/subsync/internal/clock"
	"github.com/smallbiznis/subsync/internal/subscriber/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists subscriber records through gorm. The read-modify-write
// runs inside a transaction with a row lock where the dialect supports it; a
// per-key process mutex covers dialects without FOR UPDATE (sqlite) and keeps
// the serial-merge contract for a single writer process.
type GormStore struct {
	db  *gorm.DB
	clk clock.Clock

	locks sync.Map // identity key -> *sync.Mutex
}

func NewGormStore(db *gorm.DB, clk clock.Clock) *GormStore {
	return &GormStore{db: db, clk: clk}
}

func (s *GormStore) Get(ctx context.Context, key string) (domain.Record, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Record{}, domain.ErrEmptyKey
	}

	var record domain.Record
	err := s.db.WithContext(ctx).
		Where("identity_key = ?", key).
		Limit(1).
		Find(&record).Error
	if err != nil {
		return domain.Record{}, err
	}
	if record.IdentityKey == "" {
		return domain.Record{}, domain.ErrNotFound
	}
	return record, nil
}

func (s *GormStore) UpsertMerge(ctx context.Context, key string, partial domain.Partial) (domain.Record, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Record{}, domain.ErrEmptyKey
	}

	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	var merged domain.Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmt := tx.Where("identity_key = ?", key).Limit(1)
		if s.rowLockSupported() {
			stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var existing domain.Record
		if err := stmt.Find(&existing).Error; err != nil {
			return err
		}

		merged = domain.Merge(existing, key, partial, s.clk.Now())

		if existing.IdentityKey == "" {
			return tx.Create(&merged).Error
		}
		// Select("*") forces nil/zero fields to be written so clears persist.
		return tx.Model(&domain.Record{}).
			Where("identity_key = ?", key).
			Select("*").
			Updates(merged).Error
	})
	if err != nil {
		return domain.Record{}, err
	}
	return merged, nil
}

func (s *GormStore) rowLockSupported() bool {
	return s.db.Dialector.Name() != "sqlite"
}

func (s *GormStore) keyLock(key string) *sync.Mutex {
	if lock, ok := s.locks.Load(key); ok {
		return lock.(*sync.Mutex)
	}
	lock, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
