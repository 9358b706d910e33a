package models

type OrderLine struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	OrderID  string `gorm:"type:varchar(36);not null;index" json:"-"`
	Position int    `gorm:"not null" json:"-"`
	// MenuID sengaja tanpa foreign key: menu boleh dihapus setelah order dibuat
	MenuID   string `gorm:"type:varchar(36);not null;index" json:"menuId"`
	MenuName string `gorm:"type:varchar(255);not null" json:"menuName"`
	Count    int    `gorm:"not null" json:"count"`
	Price    int64  `gorm:"not null" json:"price"`

	MenuResolved bool `gorm:"-" json:"menuResolved"`
}

// Subtotal -> harga yang dicatat saat order x jumlah
func (l OrderLine) Subtotal() int64 {
	return l.Price * int64(l.Count)
}
