package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status notification task
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationDead    = "dead"
)

// NotificationTask adalah satu SMS ke satu rider untuk satu order
type NotificationTask struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	OrderID       string     `gorm:"type:varchar(36);not null;index" json:"orderId"`
	OrderNumber   int64      `gorm:"not null" json:"orderNumber"`
	Recipient     string     `gorm:"type:varchar(20);not null" json:"recipient"`
	Sender        string     `gorm:"type:varchar(20);not null" json:"sender"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	Status        string     `gorm:"type:varchar(10);not null;index:idx_notification_due,priority:1" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time  `gorm:"not null;index:idx_notification_due,priority:2" json:"nextAttemptAt"`
	LastError     string     `gorm:"type:text" json:"lastError,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updatedAt"`
}

func (n *NotificationTask) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
