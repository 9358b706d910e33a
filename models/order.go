package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	OrderNumber    int64       `gorm:"not null;uniqueIndex" json:"orderNumber"`
	CustomerName   string      `gorm:"type:varchar(100);not null" json:"customerName"`
	Lines          []OrderLine `gorm:"foreignKey:OrderID" json:"orderList"`
	Destination    string      `gorm:"type:varchar(50);not null" json:"destination"`
	CustomerNumber string      `gorm:"type:varchar(11);not null;index" json:"customerNumber"`
	TotalPrice     int64       `gorm:"not null" json:"totalPrice"`
	Memo           string      `gorm:"type:varchar(20)" json:"memo"`
	IsDone         bool        `gorm:"not null;index" json:"isDone"`
	CreatedAt      time.Time   `gorm:"not null;index" json:"createdAt"`
	UpdatedAt      time.Time   `gorm:"not null" json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderSequence adalah counter bernama untuk nomor order
type OrderSequence struct {
	Name  string `gorm:"primaryKey;type:varchar(50)"`
	Value int64  `gorm:"not null;default:0"`
}
