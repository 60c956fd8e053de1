package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is an opaque long-lived credential. Only one valid token
// exists per user at a time, issuing a new one revokes the rest.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Token     string    `gorm:"column:token;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index:idx_refresh_tokens_cleanup"`
	Revoked   bool       `gorm:"column:revoked;default:false;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`

	User User `gorm:"foreignKey:UserID"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Valid reports whether the token can still be redeemed
func (t *RefreshToken) Valid() bool {
	return !t.Revoked && time.Now().Before(t.ExpiresAt)
}
