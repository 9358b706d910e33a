package database

import (
	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderSequenceName adalah nama counter untuk nomor order
const OrderSequenceName = "orders"

// Migrate menjalankan AutoMigrate lalu memastikan baris counter tersedia.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Menu{},
		&models.Review{},
		&models.Rider{},
		&models.Order{},
		&models.OrderLine{},
		&models.OrderSequence{},
		&models.NotificationTask{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	return SeedOrderSequence(db)
}

// SeedOrderSequence membuat counter jika belum ada. Untuk database lama,
// counter dimulai dari nomor order terbesar yang sudah tersimpan.
func SeedOrderSequence(db *gorm.DB) error {
	var maxNumber int64
	if err := db.Model(&models.Order{}).
		Select("COALESCE(MAX(order_number), 0)").
		Row().Scan(&maxNumber); err != nil {
		return err
	}

	seq := models.OrderSequence{Name: OrderSequenceName, Value: maxNumber}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		utils.InfoLogger.Printf("Order sequence initialised at %d", maxNumber)
	}
	return nil
}
