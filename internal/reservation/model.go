package reservation

import (
	"strings"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/user"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
)

// Status 预订状态。只有两个合法值，入库前统一转小写。
type Status string

const (
	StatusPending   Status = "pending"   // 已创建，等待支付确认
	StatusConfirmed Status = "confirmed" // 支付成功，终态
)

// AllowTransition 状态流转白名单。confirmed 是终态，不允许回退。
var AllowTransition = map[Status][]Status{
	StatusPending:   {StatusConfirmed},
	StatusConfirmed: {},
}

// ParseStatus 把外部输入归一化成合法状态。
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed:
		return s, true
	}
	return "", false
}

// CanTransition 判断 from→to 是否允许。from==to 视为允许（幂等更新）。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range AllowTransition[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reservation 预订记录。起止日期都是含端点的“占用日”，
// 区间判断见 Overlaps。
type Reservation struct {
	ID          string          `gorm:"primaryKey;size:36"`
	VehicleID   string          `gorm:"index;size:36;not null"`
	Vehicle     vehicle.Vehicle `gorm:"constraint:OnDelete:CASCADE"`
	UserID      string          `gorm:"index;size:36;not null"`
	User        user.User       `gorm:"constraint:OnDelete:CASCADE"`
	StartDate   time.Time       `gorm:"type:date;not null"`
	EndDate     time.Time       `gorm:"type:date;not null"`
	Status      Status          `gorm:"size:20;not null;default:pending"`
	ConfirmedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// ApplyTransition 执行状态流转；非法流转返回 ErrInvalidStatus。
// 进入 confirmed 时记录确认时间。
func (r *Reservation) ApplyTransition(to Status, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return ErrInvalidStatus
	}
	if r.Status == to {
		return nil
	}
	r.Status = to
	if to == StatusConfirmed {
		t := now
		r.ConfirmedAt = &t
	}
	return nil
}

// Overlaps 两个含端点日期区间是否相交：
// existing.start <= new.end && existing.end >= new.start。
// 共享单日边界（前一单 end == 后一单 start）算冲突。
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// BlockingStatuses 会阻塞新预订的状态集合。
// pending 也占位：未支付的单先锁住区间，宁可保守也不超卖。
func BlockingStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed}
}
