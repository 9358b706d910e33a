package services

import (
	"github.com/cheongsim/delivery-app/database"
	"github.com/cheongsim/delivery-app/models"
	"gorm.io/gorm"
)

// NextOrderNumber menaikkan counter order dan mengembalikan nilai barunya.
// Harus dipanggil di dalam transaksi yang sama dengan pembuatan order.
func NextOrderNumber(tx *gorm.DB) (int64, error) {
	result := tx.Model(&models.OrderSequence{}).
		Where("name = ?", database.OrderSequenceName).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// counter belum di-seed
		seq := models.OrderSequence{Name: database.OrderSequenceName, Value: 1}
		if err := tx.Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.Value, nil
	}

	var seq models.OrderSequence
	if err := tx.First(&seq, "name = ?", database.OrderSequenceName).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}
