package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/dto"
	"github.com/surdiana/auth-service/internal/model"
	"github.com/surdiana/auth-service/internal/repository"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/logger"
)

const auditWriteTimeout = 5 * time.Second

// AuditEntry describes one security-relevant event to record
type AuditEntry struct {
	UserID    *uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	Detail    string
	OldValue  any
	NewValue  any
	ClientIP  string
	UserAgent string
}

// AuditService persists audit entries off the request path. Entries are
// queued onto a bounded channel and written by a single worker, a full
// queue drops the entry rather than blocking the caller.
type AuditService struct {
	auditRepo *repository.AuditRepository
	queue     chan *model.AuditLog
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewAuditService(auditRepo *repository.AuditRepository, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = 256
	}

	s := &AuditService{
		auditRepo: auditRepo,
		queue:     make(chan *model.AuditLog, queueSize),
	}

	s.wg.Add(1)
	go s.worker()

	return s
}

// Record enqueues an audit entry. Never blocks and never fails the
// calling operation.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	record := &model.AuditLog{
		UserID:    entry.UserID,
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Detail:    entry.Detail,
		ClientIP:  entry.ClientIP,
		UserAgent: entry.UserAgent,
	}

	if record.ClientIP == "" {
		record.ClientIP = ctxutil.GetClientIP(ctx)
	}
	if record.UserAgent == "" {
		record.UserAgent = ctxutil.GetUserAgent(ctx)
	}

	if entry.OldValue != nil {
		if raw, err := json.Marshal(entry.OldValue); err == nil {
			record.OldValue = raw
		}
	}
	if entry.NewValue != nil {
		if raw, err := json.Marshal(entry.NewValue); err == nil {
			record.NewValue = raw
		}
	}

	select {
	case s.queue <- record:
	default:
		logger.WarnWithContext(ctx, "Audit queue full, entry dropped").
			String("action", entry.Action).
			Log()
	}
}

func (s *AuditService) worker() {
	defer s.wg.Done()

	for record := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		if err := s.auditRepo.Create(ctx, record); err != nil {
			logger.ErrorWithContext(ctx, "Failed to persist audit entry").
				String("action", record.Action).
				Err(err).
				Log()
		}
		cancel()
	}
}

// Close stops accepting entries and waits for the queue to drain
func (s *AuditService) Close() {
	s.closeOnce.Do(func() {
		close(s.queue)
	})
	s.wg.Wait()
}

// List returns audit entries for the admin endpoint
func (s *AuditService) List(ctx context.Context, filter dto.AuditFilter, limit, offset int) ([]dto.AuditLogResponse, int64, error) {
	ctx = ctxutil.NewContextWithOperation(ctx, "audit_service", "List")

	entries, total, err := s.auditRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]dto.AuditLogResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, dto.ToAuditLogResponse(&entries[i]))
	}

	return responses, total, nil
}
