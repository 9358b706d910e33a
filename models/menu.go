package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Menu struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"menuName"`
	Price        int64     `gorm:"not null" json:"menuPrice"`
	PicturePath  *string   `gorm:"type:varchar(255)" json:"menuPicturePath"`
	IsValid      bool      `gorm:"not null" json:"isValid"`
	CountPerMenu int64     `gorm:"not null;default:0" json:"countPerMenu"`
	Description  string    `gorm:"type:text" json:"menuDescription"`
	Reviews      []Review  `gorm:"foreignKey:MenuID" json:"reviews"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

func (m *Menu) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Review disimpan terpisah tetapi selalu ikut menu-nya
type Review struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	MenuID    string    `gorm:"type:varchar(36);not null;index" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"reviewText"`
	Rank      int       `gorm:"not null" json:"rank"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Review) TableName() string {
	return "menu_reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
