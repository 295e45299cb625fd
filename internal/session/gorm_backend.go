package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
)

// GormBackend stores sessions in the sessions table.
type GormBackend struct {
	DB *gorm.DB
}

func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{DB: db}
}

func (b *GormBackend) Get(ctx context.Context, id string) (string, error) {
	var rec models.SessionRecord
	err := b.DB.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return rec.Payload, nil
}

func (b *GormBackend) Put(ctx context.Context, id, payload string) error {
	rec := models.SessionRecord{ID: id, Payload: payload}
	return b.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

// Sweep removes sessions untouched since before cutoff.
func (b *GormBackend) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	res := b.DB.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.SessionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("sweep sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
