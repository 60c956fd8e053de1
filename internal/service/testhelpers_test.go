package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.UserRole{},
		&model.RefreshToken{},
		&model.AuditLog{},
		&model.FCMToken{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// fakeEmailSender records outbound mail instead of delivering it
type fakeEmailSender struct {
	mu       sync.Mutex
	sent     []string
	lastUser *model.User
	failWith error
}

func (f *fakeEmailSender) record(kind string, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.sent = append(f.sent, kind)
	f.lastUser = user
	return nil
}

func (f *fakeEmailSender) SendVerificationEmail(_ context.Context, user *model.User, _ string, _ int) error {
	return f.record("verification", user)
}

func (f *fakeEmailSender) SendPasswordResetEmail(_ context.Context, user *model.User, _ string, _ int) error {
	return f.record("password_reset", user)
}

func (f *fakeEmailSender) SendWelcomeEmail(_ context.Context, user *model.User) error {
	return f.record("welcome", user)
}

func (f *fakeEmailSender) sentKinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

// waitForMail polls until at least n messages have been recorded, the
// dispatch path is asynchronous
func (f *fakeEmailSender) waitForMail(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(f.sentKinds()) >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d mails, got %d", n, len(f.sentKinds()))
}

// fakeAuditRecorder captures entries synchronously
type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (f *fakeAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeAuditRecorder) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

func (f *fakeAuditRecorder) hasAction(action string) bool {
	for _, a := range f.actions() {
		if a == action {
			return true
		}
	}
	return false
}

type authFixture struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	tokens   *TokenService
	jwt      *JWTService
	mail     *fakeEmailSender
	audit    *fakeAuditRecorder
	auth     *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := newTestDB(t)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)

	jwtService := NewJWTService("test-secret", 15*time.Minute)
	tokenService := NewTokenService(refreshRepo, jwtService, 7*24*time.Hour)
	mail := &fakeEmailSender{}
	audit := &fakeAuditRecorder{}

	auth := NewAuthService(userRepo, tokenService, jwtService, mail, audit, 24*time.Hour, time.Hour)

	return &authFixture{
		db:       db,
		userRepo: userRepo,
		tokens:   tokenService,
		jwt:      jwtService,
		mail:     mail,
		audit:    audit,
		auth:     auth,
	}
}

// seedUser inserts a user with a bcrypt password and the USER role
func seedUser(t *testing.T, db *gorm.DB, email, password, status string, verified bool) *model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &model.User{
		FirstName:     "Test",
		LastName:      "User",
		Email:         email,
		Password:      string(hashed),
		Status:        status,
		EmailVerified: verified,
		Roles:         []model.UserRole{{Role: model.RoleUser}},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return user
}
