package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/model"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Assign(ctx context.Context, userID uuid.UUID, role string) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Assign")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	err := r.db.WithContext(ctx).Create(&model.UserRole{
		UserID: userID,
		Role:   role,
	}).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to assign role").
			String("user_id", userID.String()).
			String("role", role).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Role assigned").
		String("user_id", userID.String()).
		String("role", role).
		Log()

	return nil
}

func (r *RoleRepository) Remove(ctx context.Context, userID uuid.UUID, role string) (int64, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Remove")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	result := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&model.UserRole{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to remove role").
			String("user_id", userID.String()).
			String("role", role).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// ReplaceAll swaps the user's role set in one transaction so the user
// is never observed with zero roles.
func (r *RoleRepository) ReplaceAll(ctx context.Context, userID uuid.UUID, roles []string) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "ReplaceAll")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		for _, role := range roles {
			if err := tx.Create(&model.UserRole{UserID: userID, Role: role}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to replace roles").
			String("user_id", userID.String()).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Roles replaced").
		String("user_id", userID.String()).
		Int("count", len(roles)).
		Log()

	return nil
}

func (r *RoleRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.UserRole, error) {
	var roles []model.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *RoleRepository) Has(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
