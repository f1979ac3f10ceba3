package vehicle

import (
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/user"
)

// Vehicle 是 vehicles 表的 GORM 模型。
// Available 在某个预订进入 confirmed 后置为 false，
// 此后只有车主显式操作才能恢复为 true（预订/支付核心不会把它翻回来）。
type Vehicle struct {
	ID          string    `gorm:"primaryKey;size:36"`
	OwnerID     string    `gorm:"index;size:36;not null"`
	Owner       user.User `gorm:"constraint:OnDelete:CASCADE"`
	Title       string    `gorm:"size:100;not null"`
	Description string    `gorm:"type:text;not null"`
	PricePerDay float64   `gorm:"not null"`
	Location    string    `gorm:"size:100;index;not null"`
	Available   bool      `gorm:"not null;default:true"`
	Lat         *float64  // 地理编码后写入
	Lng         *float64
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Image 车辆图片（本地存储，记录文件名与路径）。
type Image struct {
	ID         string    `gorm:"primaryKey;size:36"`
	VehicleID  string    `gorm:"index;size:36;not null"`
	Vehicle    Vehicle   `gorm:"constraint:OnDelete:CASCADE"`
	FileName   string    `gorm:"size:200;not null"`
	FilePath   string    `gorm:"size:300;not null"`
	UploadedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 避免默认复数表名 images 过于笼统。
func (Image) TableName() string {
	return "vehicle_images"
}
