package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/model"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// Replace revokes every live token for the user and inserts the new one
// in a single transaction. This is what enforces one active session.
func (r *RefreshTokenRepository) Replace(ctx context.Context, token *model.RefreshToken) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Replace")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.RefreshToken{}).
			Where("user_id = ? AND revoked = ?", token.UserID, false).
			Updates(map[string]interface{}{"revoked": true, "revoked_at": start}).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to replace refresh token").
			String("user_id", token.UserID.String()).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "Refresh token replaced").
		String("user_id", token.UserID.String()).
		Duration(duration).
		Log()

	return nil
}

func (r *RefreshTokenRepository) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var rt model.RefreshToken
	result := r.db.WithContext(ctx).Preload("User.Roles").
		Where("token = ?", token).
		First(&rt)
	if result.Error != nil {
		return nil, result.Error
	}

	return &rt, nil
}

// Revoke marks a single token revoked. Revoking an already revoked token
// is not an error.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Revoke")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	return r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("token = ? AND revoked = ?", token, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_at": time.Now()}).Error
}

// RevokeAllForUser invalidates every live token the user holds
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "RevokeAllForUser")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	err := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_at": time.Now()}).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke tokens for user").
			String("user_id", userID.String()).
			Err(err).
			Log()
		return err
	}

	return nil
}

// DeleteExpiredAndRevoked removes tokens no longer redeemable. Called by
// the cleanup sweep.
func (r *RefreshTokenRepository) DeleteExpiredAndRevoked(ctx context.Context, now time.Time) (int64, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "DeleteExpiredAndRevoked")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR revoked = ?", now, true).
		Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to delete stale refresh tokens").
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// CountActiveForUser returns the number of live tokens the user holds
func (r *RefreshTokenRepository) CountActiveForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ? AND expires_at > ?", userID, false, time.Now()).
		Count(&count).Error
	return count, err
}
