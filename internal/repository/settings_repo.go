package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hora/billing-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository is the settings collaborator: it owns the per-owner UI
// notification window. It is independent of the sweep's reminder horizon,
// which is plain configuration.
type SettingsRepository interface {
	// GetWindowDays returns the owner's window, or the configured default
	// when the owner has never stored one.
	GetWindowDays(ctx context.Context, ownerID string) (int, error)
	SetWindowDays(ctx context.Context, ownerID string, windowDays int) error
}

type GormSettingsRepo struct {
	db          *gorm.DB
	defaultDays int
}

func NewGormSettingsRepo(db *gorm.DB, defaultDays int) *GormSettingsRepo {
	if defaultDays < 1 {
		defaultDays = 1
	}
	return &GormSettingsRepo{db: db, defaultDays: defaultDays}
}

func (r *GormSettingsRepo) GetWindowDays(ctx context.Context, ownerID string) (int, error) {
	var model OwnerSettingsModel
	err := r.db.WithContext(ctx).First(&model, "owner_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.defaultDays, nil
	}
	if err != nil {
		return 0, err
	}
	if model.WindowDays < 1 {
		return r.defaultDays, nil
	}
	return model.WindowDays, nil
}

func (r *GormSettingsRepo) SetWindowDays(ctx context.Context, ownerID string, windowDays int) error {
	if windowDays < 1 {
		return fmt.Errorf("%w: window days must be at least 1", domain.ErrValidation)
	}

	model := OwnerSettingsModel{
		OwnerID:    ownerID,
		WindowDays: windowDays,
		UpdatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"window_days", "updated_at"}),
		}).
		Create(&model).Error
}
