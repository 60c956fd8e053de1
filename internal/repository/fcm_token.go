package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/model"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type FCMTokenRepository struct {
	db *gorm.DB
}

func NewFCMTokenRepository(db *gorm.DB) *FCMTokenRepository {
	return &FCMTokenRepository{db: db}
}

// Upsert registers a device token, reassigning it if another user
// registered the same token earlier
func (r *FCMTokenRepository) Upsert(ctx context.Context, userID uuid.UUID, token, deviceType string) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Upsert")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	now := time.Now()

	var existing model.FCMToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return r.db.WithContext(ctx).Create(&model.FCMToken{
			UserID:     userID,
			Token:      token,
			DeviceType: deviceType,
			LastUsedAt: now,
		}).Error
	}

	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"user_id":      userID,
		"device_type":  deviceType,
		"last_used_at": now,
	}).Error
}

func (r *FCMTokenRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.FCMToken, error) {
	var tokens []model.FCMToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&tokens).Error
	return tokens, err
}

func (r *FCMTokenRepository) Touch(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&model.FCMToken{}).
		Where("token = ?", token).
		Update("last_used_at", time.Now()).Error
}

func (r *FCMTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&model.FCMToken{}).Error
}

func (r *FCMTokenRepository) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.FCMToken{}).Error
}

// DeleteStale removes tokens unused since the cutoff. Called by the
// cleanup sweep.
func (r *FCMTokenRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "DeleteStale")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	result := r.db.WithContext(ctx).
		Where("last_used_at < ?", cutoff).
		Delete(&model.FCMToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete stale device tokens").
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
