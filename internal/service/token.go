package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"gorm.io/gorm"
)

// TokenService owns the refresh token lifecycle. Issuing a token always
// revokes the user's previous ones, so a login on one device ends the
// session on every other device.
type TokenService struct {
	refreshTokenRepo *repository.RefreshTokenRepository
	jwtService       *JWTService
	refreshTTL       time.Duration
}

func NewTokenService(refreshTokenRepo *repository.RefreshTokenRepository, jwtService *JWTService, refreshTTL time.Duration) *TokenService {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenService{
		refreshTokenRepo: refreshTokenRepo,
		jwtService:       jwtService,
		refreshTTL:       refreshTTL,
	}
}

// Issue creates a fresh refresh token for the user, revoking all prior ones
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID) (*model.RefreshToken, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "token_service", "Issue")

	value, err := s.jwtService.GenerateOpaqueToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token := &model.RefreshToken{
		UserID:    userID,
		Token:     value,
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}

	if err := s.refreshTokenRepo.Replace(ctx, token); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Refresh token issued").
		String("user_id", userID.String()).
		Log()

	return token, nil
}

// Redeem looks up a refresh token and checks it is still live. The token
// itself is not rotated, it stays valid until logout, expiry or the next
// login.
func (s *TokenService) Redeem(ctx context.Context, value string) (*model.RefreshToken, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "token_service", "Redeem")

	token, err := s.refreshTokenRepo.GetByToken(ctx, value)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !token.Valid() {
		logger.WarnWithContext(ctx, "Rejected stale refresh token").
			String("user_id", token.UserID.String()).
			Bool("revoked", token.Revoked).
			Log()
		return nil, apperrors.ErrInvalidRefreshToken
	}

	return token, nil
}

// Revoke invalidates a single refresh token. Unknown or already revoked
// tokens are ignored so logout stays idempotent.
func (s *TokenService) Revoke(ctx context.Context, value string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "token_service", "Revoke")

	if err := s.refreshTokenRepo.Revoke(ctx, value); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// RevokeAll invalidates every session the user holds
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "token_service", "RevokeAll")

	if err := s.refreshTokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "All sessions revoked").
		String("user_id", userID.String()).
		Log()

	return nil
}
