package dto

import (
	"time"

	"github.com/surdiana/auth-service/internal/model"
)

type AuditLogResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	ActorID   string    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	OldValue  any       `json:"old_value,omitempty"`
	NewValue  any       `json:"new_value,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFilter narrows GET /audit-logs
type AuditFilter struct {
	UserID string `form:"user_id" binding:"omitempty,uuid"`
	Action string `form:"action"`
}

// ToAuditLogResponse maps an audit log model to its API representation
func ToAuditLogResponse(log *model.AuditLog) AuditLogResponse {
	resp := AuditLogResponse{
		ID:        log.ID.String(),
		Action:    log.Action,
		Detail:    log.Detail,
		ClientIP:  log.ClientIP,
		UserAgent: log.UserAgent,
		CreatedAt: log.CreatedAt,
	}

	if log.UserID != nil {
		resp.UserID = log.UserID.String()
	}
	if log.ActorID != nil {
		resp.ActorID = log.ActorID.String()
	}
	if len(log.OldValue) > 0 {
		resp.OldValue = log.OldValue
	}
	if len(log.NewValue) > 0 {
		resp.NewValue = log.NewValue
	}

	return resp
}
