package service

import (
	"context"
	"testing"
	"time"

	"github.com/surdiana/auth-service/internal/dto"
	apperrors "github.com/surdiana/auth-service/internal/errors"
	"github.com/surdiana/auth-service/internal/model"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Register(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	resp, err := fx.auth.Register(ctx, &dto.RegisterRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "Alice@Example.com",
		Password:  "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("Expected registration to succeed, got %v", err)
	}

	if resp.Email != "alice@example.com" {
		t.Errorf("Expected email lowercased, got %s", resp.Email)
	}
	if resp.Status != model.StatusInactive {
		t.Errorf("Expected status INACTIVE, got %s", resp.Status)
	}
	if resp.EmailVerified {
		t.Error("Expected new account to be unverified")
	}
	if len(resp.Roles) != 1 || resp.Roles[0] != model.RoleUser {
		t.Errorf("Expected exactly the USER role, got %v", resp.Roles)
	}

	stored, err := fx.userRepo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("Expected stored user, got %v", err)
	}
	if stored.VerificationToken == nil || *stored.VerificationToken == "" {
		t.Error("Expected a verification token on the stored user")
	}
	if stored.VerificationExpiresAt == nil {
		t.Error("Expected a verification expiry on the stored user")
	}

	if !fx.audit.hasAction(model.AuditActionRegister) {
		t.Errorf("Expected REGISTER audit entry, got %v", fx.audit.actions())
	}

	fx.mail.waitForMail(t, 1)
	if kinds := fx.mail.sentKinds(); kinds[0] != "verification" {
		t.Errorf("Expected verification mail, got %v", kinds)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "taken@example.com", "Sup3rSecret", model.StatusActive, true)

	tests := []string{
		"taken@example.com",
		"TAKEN@example.com",
		"  taken@example.com  ",
	}

	for _, email := range tests {
		_, err := fx.auth.Register(ctx, &dto.RegisterRequest{
			FirstName: "Bob",
			LastName:  "Jones",
			Email:     email,
			Password:  "Sup3rSecret",
		})
		if err != apperrors.ErrEmailExists {
			t.Errorf("Register(%q): expected ErrEmailExists, got %v", email, err)
		}
	}
}

func TestAuthService_Register_AfterSoftDelete(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	gone := seedUser(t, fx.db, "returning@example.com", "Sup3rSecret", model.StatusActive, true)
	if err := fx.userRepo.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Expected soft delete to succeed, got %v", err)
	}

	// The address is free again once its previous owner is deleted
	resp, err := fx.auth.Register(ctx, &dto.RegisterRequest{
		FirstName: "Rae",
		LastName:  "Novak",
		Email:     "returning@example.com",
		Password:  "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("Expected registration to succeed after soft delete, got %v", err)
	}
	if resp.ID == gone.ID.String() {
		t.Error("Expected a fresh account, got the deleted one")
	}

	stored, err := fx.userRepo.GetByEmail(ctx, "returning@example.com")
	if err != nil {
		t.Fatalf("Expected to find the new account, got %v", err)
	}
	if stored.ID == gone.ID || stored.Status != model.StatusInactive {
		t.Errorf("Expected a fresh INACTIVE account, got id=%s status=%s", stored.ID, stored.Status)
	}
}

func TestAuthService_VerifyEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.auth.Register(ctx, &dto.RegisterRequest{
		FirstName: "Carol",
		LastName:  "White",
		Email:     "carol@example.com",
		Password:  "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	stored, _ := fx.userRepo.GetByEmail(ctx, "carol@example.com")
	token := *stored.VerificationToken

	resp, err := fx.auth.VerifyEmail(ctx, token)
	if err != nil {
		t.Fatalf("Expected verification to succeed, got %v", err)
	}
	if resp.Status != model.StatusActive {
		t.Errorf("Expected status ACTIVE after verification, got %s", resp.Status)
	}
	if !resp.EmailVerified {
		t.Error("Expected email_verified after verification")
	}

	// Token is single use
	if _, err := fx.auth.VerifyEmail(ctx, token); err != apperrors.ErrTokenNotFound {
		t.Errorf("Expected ErrTokenNotFound on reuse, got %v", err)
	}

	// Welcome mail follows the verification mail
	fx.mail.waitForMail(t, 2)

	if !fx.audit.hasAction(model.AuditActionVerifyEmail) {
		t.Errorf("Expected VERIFY_EMAIL audit entry, got %v", fx.audit.actions())
	}
}

func TestAuthService_VerifyEmail_UnknownToken(t *testing.T) {
	fx := newAuthFixture(t)

	if _, err := fx.auth.VerifyEmail(context.Background(), "no-such-token"); err != apperrors.ErrTokenNotFound {
		t.Errorf("Expected ErrTokenNotFound, got %v", err)
	}
}

func TestAuthService_VerifyEmail_Expired(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	user := seedUser(t, fx.db, "late@example.com", "Sup3rSecret", model.StatusInactive, false)
	token := "expired-token"
	past := time.Now().Add(-2 * time.Hour)
	err := fx.db.Model(user).Updates(map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": past,
	}).Error
	if err != nil {
		t.Fatalf("Failed to stage expired token: %v", err)
	}

	if _, err := fx.auth.VerifyEmail(ctx, token); err != apperrors.ErrTokenExpired {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "dave@example.com", "Sup3rSecret", model.StatusActive, true)

	resp, err := fx.auth.Login(ctx, &dto.LoginRequest{
		Email:    "dave@example.com",
		Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("Expected login to succeed, got %v", err)
	}
	if resp.Token == "" {
		t.Error("Expected an access token")
	}
	if resp.RefreshToken == "" {
		t.Error("Expected a refresh token")
	}
	if resp.User.LastLogin == nil {
		t.Error("Expected last_login to be stamped")
	}

	// The pair is consistent: the access token names the same user the
	// persisted refresh token belongs to
	claims, err := fx.jwt.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("Expected the access token to validate, got %v", err)
	}
	userID, err := fx.jwt.ExtractUserID(claims)
	if err != nil {
		t.Fatalf("Expected a subject claim, got %v", err)
	}
	session, err := fx.tokens.Redeem(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("Expected the refresh token to be live, got %v", err)
	}
	if session.UserID != userID {
		t.Errorf("Expected both tokens to name one user, got %s and %s", userID, session.UserID)
	}
	if !fx.audit.hasAction(model.AuditActionLogin) {
		t.Errorf("Expected LOGIN audit entry, got %v", fx.audit.actions())
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "eve@example.com", "Sup3rSecret", model.StatusActive, true)

	_, err := fx.auth.Login(ctx, &dto.LoginRequest{
		Email:    "eve@example.com",
		Password: "wrong",
	})
	if err != apperrors.ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
	if !fx.audit.hasAction(model.AuditActionLoginFailed) {
		t.Errorf("Expected LOGIN_FAILED audit entry, got %v", fx.audit.actions())
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	if err != apperrors.ErrInvalidCredentials {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAuthService_Login_Unverified(t *testing.T) {
	fx := newAuthFixture(t)

	seedUser(t, fx.db, "new@example.com", "Sup3rSecret", model.StatusInactive, false)

	_, err := fx.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "new@example.com",
		Password: "Sup3rSecret",
	})
	if err != apperrors.ErrEmailNotVerified {
		t.Errorf("Expected ErrEmailNotVerified, got %v", err)
	}
}

func TestAuthService_Login_Banned(t *testing.T) {
	fx := newAuthFixture(t)

	seedUser(t, fx.db, "banned@example.com", "Sup3rSecret", model.StatusBanned, true)

	_, err := fx.auth.Login(context.Background(), &dto.LoginRequest{
		Email:    "banned@example.com",
		Password: "Sup3rSecret",
	})
	if err != apperrors.ErrAccountBanned {
		t.Errorf("Expected ErrAccountBanned, got %v", err)
	}
}

func TestAuthService_Login_SingleSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "frank@example.com", "Sup3rSecret", model.StatusActive, true)
	creds := &dto.LoginRequest{Email: "frank@example.com", Password: "Sup3rSecret"}

	first, err := fx.auth.Login(ctx, creds)
	if err != nil {
		t.Fatalf("First login failed: %v", err)
	}

	second, err := fx.auth.Login(ctx, creds)
	if err != nil {
		t.Fatalf("Second login failed: %v", err)
	}

	// The earlier session is dead, the newer one lives
	if _, err := fx.auth.Refresh(ctx, first.RefreshToken); err != apperrors.ErrInvalidRefreshToken {
		t.Errorf("Expected first session to be revoked, got %v", err)
	}
	if _, err := fx.auth.Refresh(ctx, second.RefreshToken); err != nil {
		t.Errorf("Expected second session to remain valid, got %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "grace@example.com", "Sup3rSecret", model.StatusActive, true)

	login, err := fx.auth.Login(ctx, &dto.LoginRequest{Email: "grace@example.com", Password: "Sup3rSecret"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := fx.auth.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Expected refresh to succeed, got %v", err)
	}
	if refreshed.Token == "" {
		t.Error("Expected a fresh access token")
	}
	if refreshed.RefreshToken != login.RefreshToken {
		t.Error("Expected refresh token to be kept, not rotated")
	}

	// The same refresh token keeps working until logout or relogin
	if _, err := fx.auth.Refresh(ctx, login.RefreshToken); err != nil {
		t.Errorf("Expected repeated refresh to succeed, got %v", err)
	}
}

func TestAuthService_Refresh_Unknown(t *testing.T) {
	fx := newAuthFixture(t)

	if _, err := fx.auth.Refresh(context.Background(), "bogus"); err != apperrors.ErrInvalidRefreshToken {
		t.Errorf("Expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "henry@example.com", "Sup3rSecret", model.StatusActive, true)

	login, err := fx.auth.Login(ctx, &dto.LoginRequest{Email: "henry@example.com", Password: "Sup3rSecret"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := fx.auth.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Expected logout to succeed, got %v", err)
	}

	if _, err := fx.auth.Refresh(ctx, login.RefreshToken); err != apperrors.ErrInvalidRefreshToken {
		t.Errorf("Expected session to be dead after logout, got %v", err)
	}

	var revoked model.RefreshToken
	if err := fx.db.Where("token = ?", login.RefreshToken).First(&revoked).Error; err != nil {
		t.Fatalf("Expected the revoked token row to remain, got %v", err)
	}
	if !revoked.Revoked || revoked.RevokedAt == nil {
		t.Errorf("Expected revocation to be stamped, got revoked=%v revoked_at=%v", revoked.Revoked, revoked.RevokedAt)
	}
	firstStamp := *revoked.RevokedAt

	// Logging out twice, or with a token that never existed, is fine
	if err := fx.auth.Logout(ctx, login.RefreshToken); err != nil {
		t.Errorf("Expected repeated logout to succeed, got %v", err)
	}

	// The original revocation time survives a repeated logout
	fx.db.Where("token = ?", login.RefreshToken).First(&revoked)
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(firstStamp) {
		t.Errorf("Expected the first revocation stamp to stick, got %v", revoked.RevokedAt)
	}
	if err := fx.auth.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("Expected logout with unknown token to succeed, got %v", err)
	}
}

func TestAuthService_ForgotPassword(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "ivy@example.com", "Sup3rSecret", model.StatusActive, true)

	if err := fx.auth.ForgotPassword(ctx, "ivy@example.com"); err != nil {
		t.Fatalf("Expected forgot password to succeed, got %v", err)
	}

	stored, _ := fx.userRepo.GetByEmail(ctx, "ivy@example.com")
	if stored.ResetToken == nil || *stored.ResetToken == "" {
		t.Error("Expected a reset token on the stored user")
	}

	fx.mail.waitForMail(t, 1)
	if kinds := fx.mail.sentKinds(); kinds[0] != "password_reset" {
		t.Errorf("Expected password reset mail, got %v", kinds)
	}
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	fx := newAuthFixture(t)

	if err := fx.auth.ForgotPassword(context.Background(), "nobody@example.com"); err != apperrors.ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_ResetPassword(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	seedUser(t, fx.db, "judy@example.com", "OldP4ssword", model.StatusActive, true)

	login, err := fx.auth.Login(ctx, &dto.LoginRequest{Email: "judy@example.com", Password: "OldP4ssword"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := fx.auth.ForgotPassword(ctx, "judy@example.com"); err != nil {
		t.Fatalf("Forgot password failed: %v", err)
	}
	stored, _ := fx.userRepo.GetByEmail(ctx, "judy@example.com")

	err = fx.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           *stored.ResetToken,
		NewPassword:     "NewP4ssword",
		ConfirmPassword: "NewP4ssword",
	})
	if err != nil {
		t.Fatalf("Expected reset to succeed, got %v", err)
	}

	// Old sessions are revoked
	if _, err := fx.auth.Refresh(ctx, login.RefreshToken); err != apperrors.ErrInvalidRefreshToken {
		t.Errorf("Expected sessions revoked after reset, got %v", err)
	}

	// The new password works, the old one does not
	if _, err := fx.auth.Login(ctx, &dto.LoginRequest{Email: "judy@example.com", Password: "NewP4ssword"}); err != nil {
		t.Errorf("Expected login with new password, got %v", err)
	}
	if _, err := fx.auth.Login(ctx, &dto.LoginRequest{Email: "judy@example.com", Password: "OldP4ssword"}); err != apperrors.ErrInvalidCredentials {
		t.Errorf("Expected old password rejected, got %v", err)
	}

	// Reset token is single use
	err = fx.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           *stored.ResetToken,
		NewPassword:     "AnotherP4ss",
		ConfirmPassword: "AnotherP4ss",
	})
	if err != apperrors.ErrTokenNotFound {
		t.Errorf("Expected ErrTokenNotFound on reuse, got %v", err)
	}
}

func TestAuthService_ResetPassword_Expired(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	user := seedUser(t, fx.db, "kate@example.com", "Sup3rSecret", model.StatusActive, true)
	past := time.Now().Add(-2 * time.Hour)
	err := fx.db.Model(user).Updates(map[string]interface{}{
		"reset_token":      "stale-token",
		"reset_expires_at": past,
	}).Error
	if err != nil {
		t.Fatalf("Failed to stage expired token: %v", err)
	}

	err = fx.auth.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Token:           "stale-token",
		NewPassword:     "NewP4ssword",
		ConfirmPassword: "NewP4ssword",
	})
	if err != apperrors.ErrTokenExpired {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthService_ResendVerification(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	user := seedUser(t, fx.db, "liam@example.com", "Sup3rSecret", model.StatusInactive, false)

	if err := fx.auth.ResendVerification(ctx, "liam@example.com"); err != nil {
		t.Fatalf("Expected resend to succeed, got %v", err)
	}

	stored, _ := fx.userRepo.GetByID(ctx, user.ID)
	if stored.VerificationToken == nil {
		t.Fatal("Expected a verification token after resend")
	}

	fx.mail.waitForMail(t, 1)
}

func TestAuthService_ResendVerification_AlreadyVerified(t *testing.T) {
	fx := newAuthFixture(t)

	seedUser(t, fx.db, "mia@example.com", "Sup3rSecret", model.StatusActive, true)

	if err := fx.auth.ResendVerification(context.Background(), "mia@example.com"); err != apperrors.ErrAlreadyVerified {
		t.Errorf("Expected ErrAlreadyVerified, got %v", err)
	}
}

func TestAuthService_RegisterLoginLifecycle(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	_, err := fx.auth.Register(ctx, &dto.RegisterRequest{
		FirstName: "Noah",
		LastName:  "Brown",
		Email:     "noah@example.com",
		Password:  "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	// Cannot log in before verifying
	_, err = fx.auth.Login(ctx, &dto.LoginRequest{Email: "noah@example.com", Password: "Sup3rSecret"})
	if err != apperrors.ErrEmailNotVerified {
		t.Fatalf("Expected ErrEmailNotVerified before verification, got %v", err)
	}

	stored, _ := fx.userRepo.GetByEmail(ctx, "noah@example.com")
	if _, err := fx.auth.VerifyEmail(ctx, *stored.VerificationToken); err != nil {
		t.Fatalf("Verification failed: %v", err)
	}

	login, err := fx.auth.Login(ctx, &dto.LoginRequest{Email: "noah@example.com", Password: "Sup3rSecret"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := fx.auth.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if err := fx.auth.Logout(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := fx.auth.Refresh(ctx, login.RefreshToken); err != apperrors.ErrInvalidRefreshToken {
		t.Fatalf("Expected dead session after logout, got %v", err)
	}
}

// password hashes in these tests use bcrypt.MinCost, make sure the
// production default still verifies
func TestBcryptRoundTrip(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte("Sup3rSecret")); err != nil {
		t.Errorf("Expected hash to verify, got %v", err)
	}
}
