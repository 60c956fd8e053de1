package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/dto"
	"github.com/surdiana/auth-service/internal/model"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Create")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	err := r.db.WithContext(ctx).Create(user).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.DebugWithContext(ctx, "User created").
		String("user_id", user.ID.String()).
		String("email", user.Email).
		Duration(duration).
		Log()

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByID")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&user)

	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to get user by ID").
				String("user_id", id.String()).
				Duration(time.Since(start)).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByEmail")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Preload("Roles").
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user)

	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to get user by email").
				String("email", email).
				Duration(time.Since(start)).
				Err(result.Error).
				Log()
		}
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "ExistsByEmail")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByVerificationToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var user model.User
	result := r.db.WithContext(ctx).Preload("Roles").
		Where("verification_token = ?", token).
		First(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByResetToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var user model.User
	result := r.db.WithContext(ctx).Preload("Roles").
		Where("reset_token = ?", token).
		First(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) GetByProvider(ctx context.Context, provider, providerID string) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByProvider")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var user model.User
	result := r.db.WithContext(ctx).Preload("Roles").
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&user)
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Update")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	err := r.db.WithContext(ctx).Save(user).Error
	duration := time.Since(start)

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to update user").
			String("user_id", user.ID.String()).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	return nil
}

// UpdateFields applies a partial update. Use map values so zero values
// and NULLs are written through.
func (r *UserRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "UpdateFields")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to update user fields").
			String("user_id", id.String()).
			Err(err).
			Log()
		return err
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Delete")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.User{}).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to delete user").
			String("user_id", id.String()).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User soft deleted").
		String("user_id", id.String()).
		Log()

	return nil
}

// ClearExpiredSingleUseTokens nulls out verification and reset tokens
// whose window has passed. Called by the cleanup sweep.
func (r *UserRepository) ClearExpiredSingleUseTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "ClearExpiredSingleUseTokens")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var affected int64

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("verification_token IS NOT NULL AND verification_expires_at < ?", now).
		Updates(map[string]interface{}{
			"verification_token":      nil,
			"verification_expires_at": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	affected += result.RowsAffected

	result = r.db.WithContext(ctx).Model(&model.User{}).
		Where("reset_token IS NOT NULL AND reset_expires_at < ?", now).
		Updates(map[string]interface{}{
			"reset_token":      nil,
			"reset_expires_at": nil,
		})
	if result.Error != nil {
		return affected, result.Error
	}
	affected += result.RowsAffected

	return affected, nil
}

func (r *UserRepository) List(ctx context.Context, filter dto.UserFilter, limit, offset int) ([]model.User, int64, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "List")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	start := time.Now()
	var users []model.User
	var total int64

	query := r.db.WithContext(ctx).Model(&model.User{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Verified != nil {
		query = query.Where("email_verified = ?", *filter.Verified)
	}
	if filter.Role != "" {
		query = query.Joins("JOIN user_roles ON user_roles.user_id = users.id").
			Where("user_roles.role = ?", filter.Role)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count users").
			Err(err).
			Log()
		return nil, 0, err
	}

	if err := query.Preload("Roles").Limit(limit).Offset(offset).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list users").
			Int("limit", limit).
			Int("offset", offset).
			Duration(time.Since(start)).
			Err(err).
			Log()
		return nil, 0, err
	}

	return users, total, nil
}
