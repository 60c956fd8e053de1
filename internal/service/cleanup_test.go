package service

import (
	"context"
	"testing"
	"time"

	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	"gorm.io/gorm"
)

func newCleanupFixture(t *testing.T) (*CleanupService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewCleanupService(
		repository.NewUserRepository(db),
		repository.NewRefreshTokenRepository(db),
		repository.NewFCMTokenRepository(db),
		time.Hour,
		time.Hour,
		30*24*time.Hour,
	)
	return svc, db
}

func TestCleanupService_SweepTokens(t *testing.T) {
	svc, db := newCleanupFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, "sweep@example.com", "Sup3rSecret", model.StatusActive, true)

	// One live, one expired, one revoked
	live := &model.RefreshToken{UserID: user.ID, Token: "live", ExpiresAt: time.Now().Add(time.Hour)}
	expired := &model.RefreshToken{UserID: user.ID, Token: "expired", ExpiresAt: time.Now().Add(-time.Hour)}
	revoked := &model.RefreshToken{UserID: user.ID, Token: "revoked", ExpiresAt: time.Now().Add(time.Hour), Revoked: true}
	for _, tok := range []*model.RefreshToken{live, expired, revoked} {
		if err := db.Create(tok).Error; err != nil {
			t.Fatalf("Failed to seed token: %v", err)
		}
	}

	// Expired verification token on the user row
	past := time.Now().Add(-time.Hour)
	stale := "stale-verification"
	err := db.Model(user).Updates(map[string]interface{}{
		"verification_token":      stale,
		"verification_expires_at": past,
	}).Error
	if err != nil {
		t.Fatalf("Failed to stage stale verification token: %v", err)
	}

	svc.sweepTokens(ctx)

	var count int64
	db.Model(&model.RefreshToken{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected only the live refresh token to survive, got %d rows", count)
	}

	var kept model.RefreshToken
	if err := db.Where("token = ?", "live").First(&kept).Error; err != nil {
		t.Errorf("Expected the live token to survive, got %v", err)
	}

	var refreshed model.User
	if err := db.First(&refreshed, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if refreshed.VerificationToken != nil {
		t.Error("Expected the expired verification token to be cleared")
	}
}

func TestCleanupService_SweepDeviceTokens(t *testing.T) {
	svc, db := newCleanupFixture(t)
	ctx := context.Background()

	user := seedUser(t, db, "devices@example.com", "Sup3rSecret", model.StatusActive, true)

	fresh := &model.FCMToken{UserID: user.ID, Token: "fresh", LastUsedAt: time.Now()}
	stale := &model.FCMToken{UserID: user.ID, Token: "stale", LastUsedAt: time.Now().Add(-60 * 24 * time.Hour)}
	for _, tok := range []*model.FCMToken{fresh, stale} {
		if err := db.Create(tok).Error; err != nil {
			t.Fatalf("Failed to seed device token: %v", err)
		}
	}

	svc.sweepDeviceTokens(ctx)

	var tokens []model.FCMToken
	if err := db.Find(&tokens).Error; err != nil {
		t.Fatalf("Failed to list device tokens: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Token != "fresh" {
		t.Errorf("Expected only the fresh device token to survive, got %v", tokenValues(tokens))
	}
}

func TestCleanupService_StartStop(t *testing.T) {
	svc, _ := newCleanupFixture(t)

	svc.Start()
	svc.Stop()
	// Stop is idempotent
	svc.Stop()
}
