package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"github.com/google/uuid"
)

type Service struct {
	repo *Repo
	log  logger.Logger
}

func NewService(repo *Repo, log logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, vehicleID, userID string, rating int, comment string) (*Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	exists, err := s.repo.VehicleExists(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, vehicle.ErrNotFound
	}

	rev := &Review{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		UserID:    userID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.repo.Create(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// VehicleReviews 评价列表 + 平均分。
type VehicleReviews struct {
	Reviews []Review
	Average float64
	Count   int64
}

func (s *Service) ListForVehicle(ctx context.Context, vehicleID string) (*VehicleReviews, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	exists, err := s.repo.VehicleExists(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, vehicle.ErrNotFound
	}

	reviews, err := s.repo.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	avg, count, err := s.repo.AverageRating(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return &VehicleReviews{Reviews: reviews, Average: avg, Count: count}, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Review, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.ListByUser(ctx, userID)
}
