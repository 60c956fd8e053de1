package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FCMToken is a registered device push token. Tokens unused past the
// configured stale window are swept by the cleanup service.
type FCMToken struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Token      string    `gorm:"column:token;uniqueIndex;not null"`
	DeviceType string    `gorm:"column:device_type"`
	LastUsedAt time.Time `gorm:"column:last_used_at;index"`
	CreatedAt  time.Time `gorm:"column:created_at"`

	User User `gorm:"foreignKey:UserID"`
}

func (t *FCMToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
