package vehicle

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound 车辆不存在（或不属于当前用户，取决于查询条件）
var ErrNotFound = errors.New("vehicle not found")

// ListFilter 公开列表的过滤条件。
type ListFilter struct {
	Location  string   // 模糊匹配
	MinPrice  *float64 // 日价下限
	MaxPrice  *float64 // 日价上限
	Available *bool
	Offset    int
	Limit     int
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

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(v).Error
}

func (r *Repo) Save(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(v).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindOwned 按 ID+车主 查询；非车主访问与不存在同样返回 ErrNotFound。
func (r *Repo) FindOwned(ctx context.Context, id, ownerID string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Delete(&Vehicle{}, "id = ?", id).Error
}

// List 公开列表 + 过滤条件 + 分页。
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Vehicle, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := db.Model(&Vehicle{})
	if f.Location != "" {
		q = q.Where("location LIKE ?", "%"+f.Location+"%")
	}
	if f.MinPrice != nil {
		q = q.Where("price_per_day >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price_per_day <= ?", *f.MaxPrice)
	}
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var vehicles []Vehicle
	if err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	if err := db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repo) AddImage(ctx context.Context, img *Image) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(img).Error
}

func (r *Repo) ListImages(ctx context.Context, vehicleID string) ([]Image, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var images []Image
	if err := db.Where("vehicle_id = ?", vehicleID).Order("uploaded_at DESC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// UpdateCoordinates 写入地理编码结果。
func (r *Repo) UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Vehicle{}).Where("id = ?", id).
		Updates(map[string]interface{}{"lat": lat, "lng": lng})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Nearby 按平面近似（1 度 ≈ 111km）做半径过滤，和原系统保持一致。
func (r *Repo) Nearby(ctx context.Context, lat, lng float64, radiusKm float64) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	deg := radiusKm / 111.0
	var vehicles []Vehicle
	err := db.Where("lat IS NOT NULL AND lng IS NOT NULL").
		Where("POW(lat - ?, 2) + POW(lng - ?, 2) <= POW(?, 2)", lat, lng, deg).
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}
