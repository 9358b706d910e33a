package utils

import (
	"strconv"
	"strings"
)

// FormatWon memformat harga (satuan won) dengan pemisah ribuan.
// Example: 1234500 -> "1,234,500원"
func FormatWon(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)

	// Tambahkan pemisah ribuan
	var result []string
	for i := len(digits); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		result = append([]string{digits[start:i]}, result...)
	}

	return sign + strings.Join(result, ",") + "원"
}
