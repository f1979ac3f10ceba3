package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const detailCacheTTL = 5 * time.Minute

// Service 车辆领域用例。详情读多写少，走 Redis 读穿缓存；
// 任何写操作（包括支付确认把 available 置 false）都要使缓存失效。
type Service struct {
	repo *Repo
	rdb  *redis.Client
	log  logger.Logger
}

func NewService(repo *Repo, rdb *redis.Client, log logger.Logger) *Service {
	return &Service{repo: repo, rdb: rdb, log: log}
}

func detailCacheKey(id string) string {
	return fmt.Sprintf("vehicle:%s:detail", id)
}

// CreateInput 新建车辆的入参。
type CreateInput struct {
	OwnerID     string
	Title       string
	Description string
	PricePerDay float64
	Location    string
	Available   *bool
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("owner_id required")
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" ||
		strings.TrimSpace(in.Location) == "" || in.PricePerDay <= 0 {
		return nil, fmt.Errorf("title, description, location and a positive price_per_day are required")
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	v := &Vehicle{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		PricePerDay: in.PricePerDay,
		Location:    strings.TrimSpace(in.Location),
		Available:   available,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Get 读穿缓存的详情查询。
func (s *Service) Get(ctx context.Context, id string) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, detailCacheKey(id)).Result()
		if err == nil {
			var v Vehicle
			if jsonErr := json.Unmarshal([]byte(raw), &v); jsonErr == nil {
				return &v, nil
			}
		}
	}

	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheDetail(ctx, v)
	return v, nil
}

func (s *Service) cacheDetail(ctx context.Context, v *Vehicle) {
	if s.rdb == nil || v == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, detailCacheKey(v.ID), b, detailCacheTTL).Err(); err != nil && s.log != nil {
		s.log.Warnf("redis set failed for vehicle %s: %v", v.ID, err)
	}
}

// InvalidateCache 使车辆详情缓存失效。
// 支付确认把 available 置 false 时也会调用（见 payment.Service）。
func (s *Service) InvalidateCache(ctx context.Context, id string) {
	if s == nil || s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, detailCacheKey(id)).Err(); err != nil && s.log != nil {
		s.log.Warnf("redis del failed for vehicle %s: %v", id, err)
	}
}

// UpdateInput 部分更新；nil 字段保持原值。
type UpdateInput struct {
	Title       *string
	Description *string
	PricePerDay *float64
	Location    *string
	Available   *bool
}

// Update 仅车主可改；available 的显式恢复（false→true）只能走这里。
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (*Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	v, err := s.repo.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		v.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		v.Description = *in.Description
	}
	if in.PricePerDay != nil {
		v.PricePerDay = *in.PricePerDay
	}
	if in.Location != nil {
		v.Location = strings.TrimSpace(*in.Location)
	}
	if in.Available != nil {
		v.Available = *in.Available
	}

	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}
	s.InvalidateCache(ctx, id)
	return v, nil
}

// Delete 仅车主可删；关联的预订/支付/图片由外键级联清理。
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	if _, err := s.repo.FindOwned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateCache(ctx, id)
	return nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Vehicle, int64, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.repo.List(ctx, f)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// AddImage 记录一张已落盘的车辆图片。
func (s *Service) AddImage(ctx context.Context, vehicleID, ownerID, fileName, filePath string) (*Image, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if _, err := s.repo.FindOwned(ctx, vehicleID, ownerID); err != nil {
		return nil, err
	}
	img := &Image{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		FileName:  fileName,
		FilePath:  filePath,
	}
	if err := s.repo.AddImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *Service) ListImages(ctx context.Context, vehicleID string) ([]Image, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if _, err := s.repo.FindByID(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.repo.ListImages(ctx, vehicleID)
}

// SetCoordinates 写入地理编码结果并失效缓存。
func (s *Service) SetCoordinates(ctx context.Context, id string, lat, lng float64) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	if err := s.repo.UpdateCoordinates(ctx, id, lat, lng); err != nil {
		return err
	}
	s.InvalidateCache(ctx, id)
	return nil
}

func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]Vehicle, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if radiusKm <= 0 {
		radiusKm = 5
	}
	return s.repo.Nearby(ctx, lat, lng, radiusKm)
}
