package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Rider struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"riderName"`
	Number    string    `gorm:"type:varchar(20);not null" json:"riderNumber"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (r *Rider) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
