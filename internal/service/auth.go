package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const emailDispatchTimeout = 30 * time.Second

// EmailSender is the side-effect port for transactional mail. The
// production implementation is EmailService.
type EmailSender interface {
	SendVerificationEmail(ctx context.Context, user *model.User, token string, ttlHours int) error
	SendPasswordResetEmail(ctx context.Context, user *model.User, token string, ttlHours int) error
	SendWelcomeEmail(ctx context.Context, user *model.User) error
}

// AuditRecorder is the side-effect port for audit logging. The
// production implementation is AuditService.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuthService implements registration, email verification, login and
// the password reset flows
type AuthService struct {
	userRepo     *repository.UserRepository
	tokenService *TokenService
	jwtService   *JWTService
	emailSender  EmailSender
	audit        AuditRecorder

	verificationTTL time.Duration
	resetTTL        time.Duration
}

func NewAuthService(
	userRepo *repository.UserRepository,
	tokenService *TokenService,
	jwtService *JWTService,
	emailSender EmailSender,
	audit AuditRecorder,
	verificationTTL time.Duration,
	resetTTL time.Duration,
) *AuthService {
	if verificationTTL <= 0 {
		verificationTTL = 24 * time.Hour
	}
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}

	return &AuthService{
		userRepo:        userRepo,
		tokenService:    tokenService,
		jwtService:      jwtService,
		emailSender:     emailSender,
		audit:           audit,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
	}
}

// Register creates an inactive, unverified account holding the USER role
// and mails a verification link
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "Register")

	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if exists {
		logger.WarnWithContext(ctx, "Registration rejected, email taken").
			String("email", email).
			Log()
		return nil, apperrors.ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token, err := s.jwtService.GenerateOpaqueToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	expiresAt := time.Now().Add(s.verificationTTL)

	user := &model.User{
		FirstName:             strings.TrimSpace(req.FirstName),
		LastName:              strings.TrimSpace(req.LastName),
		Email:                 email,
		Password:              string(hashed),
		Status:                model.StatusInactive,
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
		Roles:                 []model.UserRole{{Role: model.RoleUser}},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit.Record(ctx, AuditEntry{
		UserID: &user.ID,
		Action: model.AuditActionRegister,
		Detail: "account created",
	})

	s.dispatchEmail(ctx, "verification", func(mailCtx context.Context) error {
		return s.emailSender.SendVerificationEmail(mailCtx, user, token, s.ttlHours(s.verificationTTL))
	})

	logger.InfoWithContext(ctx, "User registered").
		String("user_id", user.ID.String()).
		String("email", user.Email).
		Log()

	resp := dto.ToUserResponse(user)
	return &resp, nil
}

// VerifyEmail redeems a verification token, activating the account
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*dto.UserResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "VerifyEmail")

	user, err := s.userRepo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.EmailVerified {
		return nil, apperrors.ErrAlreadyVerified
	}

	if user.VerificationExpiresAt == nil || time.Now().After(*user.VerificationExpiresAt) {
		return nil, apperrors.ErrTokenExpired
	}

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"email_verified":          true,
		"status":                  model.StatusActive,
		"verification_token":      nil,
		"verification_expires_at": nil,
	})
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user.EmailVerified = true
	user.Status = model.StatusActive
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil

	s.audit.Record(ctx, AuditEntry{
		UserID: &user.ID,
		Action: model.AuditActionVerifyEmail,
		Detail: "email verified, account activated",
	})

	s.dispatchEmail(ctx, "welcome", func(mailCtx context.Context) error {
		return s.emailSender.SendWelcomeEmail(mailCtx, user)
	})

	logger.InfoWithContext(ctx, "Email verified").
		String("user_id", user.ID.String()).
		Log()

	resp := dto.ToUserResponse(user)
	return &resp, nil
}

// ResendVerification rotates the verification token and mails it again
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "ResendVerification")

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.EmailVerified {
		return apperrors.ErrAlreadyVerified
	}

	token, err := s.jwtService.GenerateOpaqueToken()
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	expiresAt := time.Now().Add(s.verificationTTL)

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": expiresAt,
	})
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.dispatchEmail(ctx, "verification", func(mailCtx context.Context) error {
		return s.emailSender.SendVerificationEmail(mailCtx, user, token, s.ttlHours(s.verificationTTL))
	})

	return nil
}

// Login authenticates credentials and opens the user's single active
// session, ending any session on another device
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "Login")

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		s.audit.Record(ctx, AuditEntry{
			UserID: &user.ID,
			Action: model.AuditActionLoginFailed,
			Detail: "wrong password",
		})
		logger.WarnWithContext(ctx, "Login failed, wrong password").
			String("user_id", user.ID.String()).
			Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, apperrors.ErrEmailNotVerified
	}

	if user.Status == model.StatusBanned {
		s.audit.Record(ctx, AuditEntry{
			UserID: &user.ID,
			Action: model.AuditActionLoginFailed,
			Detail: "account banned",
		})
		return nil, apperrors.ErrAccountBanned
	}

	return s.openSession(ctx, user, model.AuditActionLogin)
}

// Refresh exchanges a live refresh token for a fresh access token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshTokenResponse, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "Refresh")

	token, err := s.tokenService.Redeem(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user := &token.User
	if user.Status == model.StatusBanned {
		return nil, apperrors.ErrAccountBanned
	}

	accessToken, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.DebugWithContext(ctx, "Access token refreshed").
		String("user_id", user.ID.String()).
		Log()

	return &dto.RefreshTokenResponse{
		Token:        accessToken,
		RefreshToken: token.Token,
		ExpiresIn:    int(s.jwtService.AccessTTL().Seconds()),
		User:         dto.ToUserResponse(user),
	}, nil
}

// Logout revokes the presented refresh token. Revoking an unknown or
// already revoked token succeeds, so repeated logouts are harmless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "Logout")

	if err := s.tokenService.Revoke(ctx, refreshToken); err != nil {
		return err
	}

	if userID, ok := ctxutil.GetUserID(ctx); ok {
		s.audit.Record(ctx, AuditEntry{
			UserID: &userID,
			Action: model.AuditActionLogout,
		})
	}

	return nil
}

// ForgotPassword issues a reset token and mails the reset link
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "ForgotPassword")

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token, err := s.jwtService.GenerateOpaqueToken()
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	expiresAt := time.Now().Add(s.resetTTL)

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"reset_token":      token,
		"reset_expires_at": expiresAt,
	})
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.audit.Record(ctx, AuditEntry{
		UserID: &user.ID,
		Action: model.AuditActionForgotPassword,
	})

	s.dispatchEmail(ctx, "password_reset", func(mailCtx context.Context) error {
		return s.emailSender.SendPasswordResetEmail(mailCtx, user, token, s.ttlHours(s.resetTTL))
	})

	return nil
}

// ResetPassword redeems a reset token, replaces the password and revokes
// every open session
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "auth_service", "ResetPassword")

	user, err := s.userRepo.GetByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTokenNotFound
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		return apperrors.ErrTokenExpired
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	err = s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"password":         string(hashed),
		"reset_token":      nil,
		"reset_expires_at": nil,
	})
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.tokenService.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{
		UserID: &user.ID,
		Action: model.AuditActionResetPassword,
		Detail: "password reset, all sessions revoked",
	})

	logger.InfoWithContext(ctx, "Password reset completed").
		String("user_id", user.ID.String()).
		Log()

	return nil
}

// openSession issues the access and refresh token pair and stamps last
// login. Shared by the password and OAuth2 login paths.
func (s *AuthService) openSession(ctx context.Context, user *model.User, auditAction string) (*dto.LoginResponse, error) {
	// Sign before touching the token store so a signing failure never
	// leaves a persisted session behind
	accessToken, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	refreshToken, err := s.tokenService.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"last_login": now,
	}); err != nil {
		logger.WarnWithContext(ctx, "Failed to stamp last login").
			String("user_id", user.ID.String()).
			Err(err).
			Log()
	}
	user.LastLogin = &now

	s.audit.Record(ctx, AuditEntry{
		UserID: &user.ID,
		Action: auditAction,
	})

	logger.InfoWithContext(ctx, "Session opened").
		String("user_id", user.ID.String()).
		Log()

	return &dto.LoginResponse{
		Token:        accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    int(s.jwtService.AccessTTL().Seconds()),
		User:         dto.ToUserResponse(user),
	}, nil
}

// dispatchEmail delivers mail off the request path. Failures are logged,
// the triggering operation already succeeded.
func (s *AuthService) dispatchEmail(ctx context.Context, kind string, send func(context.Context) error) {
	requestID := ctxutil.GetRequestID(ctx)

	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), emailDispatchTimeout)
		defer cancel()

		if requestID != "" {
			mailCtx = context.WithValue(mailCtx, ctxutil.RequestIDKey, requestID)
		}

		if err := send(mailCtx); err != nil {
			logger.ErrorWithContext(mailCtx, "Background email delivery failed").
				String("kind", kind).
				Err(err).
				Log()
		}
	}()
}

func (s *AuthService) ttlHours(d time.Duration) int {
	hours := int(d.Hours())
	if hours < 1 {
		hours = 1
	}
	return hours
}
