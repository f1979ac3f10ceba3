package payment

import (
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
)

// StatusSucceeded 目前只落成功的支付；失败/取消不会产生记录。
const StatusSucceeded = "succeeded"

// Payment 支付记录。reservation_id 上的唯一索引是幂等的根：
// 同一预订的重复 webhook 只会插入成功一次。
type Payment struct {
	ID              string                  `gorm:"primaryKey;size:36"`
	ReservationID   string                  `gorm:"uniqueIndex;size:36;not null"`
	Reservation     reservation.Reservation `gorm:"constraint:OnDelete:CASCADE"`
	UserID          string                  `gorm:"index;size:36;not null"`
	AmountCents     int64                   `gorm:"not null"`
	Currency        string                  `gorm:"size:10;not null"`
	Status          string                  `gorm:"size:20;not null"`
	StripeSessionID string                  `gorm:"size:120"`
	CreatedAt       time.Time               `gorm:"autoCreateTime"`
}
