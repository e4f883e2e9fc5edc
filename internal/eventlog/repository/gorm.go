package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smallbiznis/subsync/internal/eventlog/domain"
)

// GormJournal persists the event log through gorm.
type GormJournal struct {
	db *gorm.DB
}

func NewGormJournal(db *gorm.DB) *GormJournal {
	return &GormJournal{db: db}
}

func (j *GormJournal) Append(ctx context.Context, entry domain.Entry) error {
	return j.db.WithContext(ctx).Create(&entry).Error
}

func (j *GormJournal) List(ctx context.Context, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var entries []domain.Entry
	err := j.db.WithContext(ctx).
		Order("received_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
