package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
)

// ErrNotOwner 只有车主能触发地理编码。
var ErrNotOwner = errors.New("vehicle does not belong to this user")

type Service struct {
	geocoder Geocoder
	vehicles *vehicle.Service
	log      logger.Logger
}

func NewService(geocoder Geocoder, vehicles *vehicle.Service, log logger.Logger) *Service {
	return &Service{geocoder: geocoder, vehicles: vehicles, log: log}
}

// GeocodeVehicle 解析车辆地址并写入坐标。
func (s *Service) GeocodeVehicle(ctx context.Context, vehicleID, actorID string) (lat, lng float64, err error) {
	if s == nil || s.geocoder == nil || s.vehicles == nil {
		return 0, 0, fmt.Errorf("service not initialized")
	}

	v, err := s.vehicles.Get(ctx, vehicleID)
	if err != nil {
		return 0, 0, err
	}
	if v.OwnerID != actorID {
		return 0, 0, ErrNotOwner
	}

	lat, lng, err = s.geocoder.Geocode(ctx, v.Location)
	if err != nil {
		return 0, 0, err
	}
	if err := s.vehicles.SetCoordinates(ctx, vehicleID, lat, lng); err != nil {
		return 0, 0, err
	}
	if s.log != nil {
		s.log.Infof("vehicle %s geocoded to (%f, %f)", vehicleID, lat, lng)
	}
	return lat, lng, nil
}

// Nearby 按坐标+半径（公里）找车。
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]vehicle.Vehicle, error) {
	if s == nil || s.vehicles == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.vehicles.Nearby(ctx, lat, lng, radiusKm)
}
