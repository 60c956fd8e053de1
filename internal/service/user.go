package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService covers profile management, administration and the role
// operations
type UserService struct {
	userRepo     *repository.UserRepository
	roleRepo     *repository.RoleRepository
	tokenService *TokenService
	audit        AuditRecorder
}

func NewUserService(
	userRepo *repository.UserRepository,
	roleRepo *repository.RoleRepository,
	tokenService *TokenService,
	audit AuditRecorder,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		tokenService: tokenService,
		audit:        audit,
	}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "GetByID")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := dto.ToUserResponse(user)
	return &resp, nil
}

func (s *UserService) List(ctx context.Context, filter dto.UserFilter, limit, offset int) ([]dto.UserResponse, int64, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "List")

	users, total, err := s.userRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, dto.ToUserResponse(&users[i]))
	}

	return responses, total, nil
}

// UpdateProfile applies the caller's own profile changes
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "UpdateProfile")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	old := map[string]string{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"avatar_url": user.AvatarURL,
	}

	updates := map[string]interface{}{}
	if req.FirstName != "" {
		updates["first_name"] = strings.TrimSpace(req.FirstName)
		user.FirstName = strings.TrimSpace(req.FirstName)
	}
	if req.LastName != "" {
		updates["last_name"] = strings.TrimSpace(req.LastName)
		user.LastName = strings.TrimSpace(req.LastName)
	}
	if req.AvatarURL != "" {
		updates["avatar_url"] = req.AvatarURL
		user.AvatarURL = req.AvatarURL
	}

	if len(updates) > 0 {
		if err := s.userRepo.UpdateFields(ctx, id, updates); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}

		s.audit.Record(ctx, AuditEntry{
			UserID:   &id,
			ActorID:  &id,
			Action:   model.AuditActionProfileUpdated,
			OldValue: old,
			NewValue: updates,
		})
	}

	resp := dto.ToUserResponse(user)
	return &resp, nil
}

// UpdatePassword changes the caller's password after checking the
// current one, then revokes every open session
func (s *UserService) UpdatePassword(ctx context.Context, id uuid.UUID, req *dto.UpdatePasswordRequest) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "UpdatePassword")

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.userRepo.UpdateFields(ctx, id, map[string]interface{}{
		"password": string(hashed),
	}); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.tokenService.RevokeAll(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:  &id,
		ActorID: &id,
		Action:  model.AuditActionResetPassword,
		Detail:  "password changed, all sessions revoked",
	})

	return nil
}

// AssignRole grants a role. Granting a role the user already has is a
// conflict.
func (s *UserService) AssignRole(ctx context.Context, actorID, userID uuid.UUID, role string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "AssignRole")

	if !model.IsKnownRole(role) {
		return apperrors.ErrUnknownRole
	}

	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	has, err := s.roleRepo.Has(ctx, userID, role)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if has {
		return apperrors.ErrRoleExists
	}

	if err := s.roleRepo.Assign(ctx, userID, role); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:   &userID,
		ActorID:  &actorID,
		Action:   model.AuditActionRoleAssigned,
		NewValue: map[string]string{"role": role},
	})

	return nil
}

// RemoveRole revokes a role. A user always keeps at least one role.
func (s *UserService) RemoveRole(ctx context.Context, actorID, userID uuid.UUID, role string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "RemoveRole")

	if !model.IsKnownRole(role) {
		return apperrors.ErrUnknownRole
	}

	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	count, err := s.roleRepo.CountForUser(ctx, userID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if count <= 1 {
		return apperrors.ErrLastRole
	}

	removed, err := s.roleRepo.Remove(ctx, userID, role)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if removed == 0 {
		return apperrors.ErrRoleNotAssigned
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:   &userID,
		ActorID:  &actorID,
		Action:   model.AuditActionRoleRemoved,
		OldValue: map[string]string{"role": role},
	})

	return nil
}

// ReplaceRoles swaps the user's entire role set in one transaction.
// The set must be non-empty and contain only known roles.
func (s *UserService) ReplaceRoles(ctx context.Context, actorID, userID uuid.UUID, roles []string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "ReplaceRoles")

	deduped := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	for _, role := range roles {
		if !model.IsKnownRole(role) {
			return apperrors.ErrUnknownRole
		}
		if seen[role] {
			continue
		}
		seen[role] = true
		deduped = append(deduped, role)
	}
	if len(deduped) == 0 {
		return apperrors.ErrEmptyRoleSet
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.roleRepo.ReplaceAll(ctx, userID, deduped); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:   &userID,
		ActorID:  &actorID,
		Action:   model.AuditActionRolesReplaced,
		OldValue: map[string][]string{"roles": user.RoleNames()},
		NewValue: map[string][]string{"roles": deduped},
	})

	return nil
}

// UpdateStatus sets the account status. Banning a user also ends their
// session.
func (s *UserService) UpdateStatus(ctx context.Context, actorID, userID uuid.UUID, status string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "UpdateStatus")

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if user.Status == status {
		return nil
	}

	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{
		"status": status,
	}); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if status == model.StatusBanned {
		if err := s.tokenService.RevokeAll(ctx, userID); err != nil {
			return err
		}
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:   &userID,
		ActorID:  &actorID,
		Action:   model.AuditActionStatusChanged,
		OldValue: map[string]string{"status": user.Status},
		NewValue: map[string]string{"status": status},
	})

	logger.InfoWithContext(ctx, "User status changed").
		String("user_id", userID.String()).
		String("from", user.Status).
		String("to", status).
		Log()

	return nil
}

// Delete soft deletes the account and revokes its sessions
func (s *UserService) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "user_service", "Delete")

	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	if err := s.tokenService.RevokeAll(ctx, userID); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit.Record(ctx, AuditEntry{
		UserID:  &userID,
		ActorID: &actorID,
		Action:  model.AuditActionUserDeleted,
	})

	return nil
}

func (s *UserService) getUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, nil
}
