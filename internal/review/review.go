package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/user"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"gorm.io/gorm"
)

// ErrInvalidRating 评分必须在 1..5 之间。
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Review 车辆评价。
type Review struct {
	ID        string          `gorm:"primaryKey;size:36"`
	VehicleID string          `gorm:"index;size:36;not null"`
	Vehicle   vehicle.Vehicle `gorm:"constraint:OnDelete:CASCADE"`
	UserID    string          `gorm:"index;size:36;not null"`
	User      user.User       `gorm:"constraint:OnDelete:CASCADE"`
	Rating    int             `gorm:"not null"`
	Comment   string          `gorm:"type:text"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, rev *Review) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(rev).Error
}

func (r *Repo) ListByVehicle(ctx context.Context, vehicleID string) ([]Review, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Review
	err := db.Where("vehicle_id = ?", vehicleID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Review, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Review
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AverageRating 无评价时返回 (0, 0, nil)。
func (r *Repo) AverageRating(ctx context.Context, vehicleID string) (float64, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, 0, fmt.Errorf("repo db is nil")
	}
	var row struct {
		Avg   float64
		Count int64
	}
	err := db.Model(&Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("vehicle_id = ?", vehicleID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return row.Avg, row.Count, nil
}

func (r *Repo) VehicleExists(ctx context.Context, vehicleID string) (bool, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	if err := db.Model(&vehicle.Vehicle{}).Where("id = ?", vehicleID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
