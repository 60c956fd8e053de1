package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/dto"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
)

func TestAuditService_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(repository.NewAuditRepository(db), 16)
	ctx := context.Background()

	userID := uuid.New()
	actorID := uuid.New()

	svc.Record(ctx, AuditEntry{
		UserID:   &userID,
		ActorID:  &actorID,
		Action:   model.AuditActionStatusChanged,
		Detail:   "test",
		OldValue: map[string]string{"status": "ACTIVE"},
		NewValue: map[string]string{"status": "BANNED"},
	})
	svc.Record(ctx, AuditEntry{
		UserID: &userID,
		Action: model.AuditActionLogin,
	})

	// Close drains the queue before returning
	svc.Close()

	entries, total, err := svc.List(ctx, dto.AuditFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got total=%d len=%d", total, len(entries))
	}

	byUser, total, err := svc.List(ctx, dto.AuditFilter{Action: model.AuditActionLogin}, 10, 0)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if total != 1 || len(byUser) != 1 || byUser[0].Action != model.AuditActionLogin {
		t.Errorf("Expected only the LOGIN entry, got total=%d %v", total, byUser)
	}
}

func TestAuditService_RecordNeverBlocks(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(repository.NewAuditRepository(db), 1)
	ctx := context.Background()

	userID := uuid.New()

	// Flood well past the queue size, the call must return promptly
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			svc.Record(ctx, AuditEntry{UserID: &userID, Action: model.AuditActionLogin})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	svc.Close()
}

func TestAuditService_CloseIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(repository.NewAuditRepository(db), 4)

	svc.Close()
	svc.Close()
}
