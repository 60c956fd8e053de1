package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/dto"
	"github.com/surdiana/auth-service/internal/model"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Create")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to write audit log").
			String("action", entry.Action).
			Err(err).
			Log()
		return err
	}

	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter dto.AuditFilter, limit, offset int) ([]model.AuditLog, int64, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "List")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	var entries []model.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AuditLog{})

	if filter.UserID != "" {
		if userID, err := uuid.Parse(filter.UserID); err == nil {
			query = query.Where("user_id = ?", userID)
		}
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Limit(limit).Offset(offset).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list audit logs").
			Err(err).
			Log()
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *AuditRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.AuditLog, int64, error) {
	return r.List(ctx, dto.AuditFilter{UserID: userID.String()}, limit, offset)
}
