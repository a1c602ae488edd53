package utils

import (
	"math/rand"
	"time"

	"github.com/avinashd07/shop_mitra/models"
	"gorm.io/gorm"
)

const orderNumberSuffixLength = 8
const letterBytes = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const orderNumberPrefix = "SM-"

// GenerateUniqueOrderNumber produces a human-facing order number that does not
// collide with any existing order, retrying until an unused one is found.
func GenerateUniqueOrderNumber(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		b := make([]byte, orderNumberSuffixLength)
		for i := range b {
			b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
		}
		number := orderNumberPrefix + string(b)

		var order models.Order
		err := tx.Where("order_number = ?", number).First(&order).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return number, nil
			}
			return "", err
		}
	}
}
