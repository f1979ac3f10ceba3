package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store 预订服务依赖的存储能力。*Repo 是生产实现，
// 单测用内存 fake 模拟并发与回滚。
type Store interface {
	InTx(ctx context.Context, fn func(tx Store) error) error
	LockVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error)
	FindVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error)
	FindOverlapping(ctx context.Context, vehicleID string, statuses []Status, start, end time.Time) ([]Reservation, error)
	Create(ctx context.Context, res *Reservation) error
	FindByID(ctx context.Context, id string) (*Reservation, error)
	Save(ctx context.Context, res *Reservation) error
	ListByUser(ctx context.Context, userID string) ([]Reservation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Reservation, error)
}

type Service struct {
	store Store
	log   logger.Logger
	now   func() time.Time
}

func NewService(store Store, log logger.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Availability 某车辆在给定区间的可订情况。
type Availability struct {
	Available bool
	Conflicts []Reservation
}

// CheckAvailability 只读查询：车辆整体可租、且区间内没有
// pending/confirmed 预订时才算可订。不加锁，结果仅供展示，
// 下单仍以 CreateReservation 事务内的判定为准。
func (s *Service) CheckAvailability(ctx context.Context, vehicleID string, start, end time.Time) (*Availability, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	v, err := s.store.FindVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !v.Available {
		return &Availability{Available: false}, nil
	}

	conflicts, err := s.store.FindOverlapping(ctx, vehicleID, BlockingStatuses(), start, end)
	if err != nil {
		return nil, err
	}
	return &Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// CreateReservation 下单。整个判定+写入在一个事务里：
//  1. FOR UPDATE 锁车辆行（并发下单在这里排队）
//  2. 车辆整体不可租 → ErrVehicleUnavailable
//  3. 区间与已有 pending/confirmed 相交 → ErrVehicleUnavailable
//  4. 写入 pending 预订
//
// 唯一键冲突（极端竞态下）翻译成 ErrConflict，对外同样按 409 呈现。
func (s *Service) CreateReservation(ctx context.Context, userID, vehicleID string, start, end time.Time) (*Reservation, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	res := &Reservation{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Status:    StatusPending,
	}

	err := s.store.InTx(ctx, func(tx Store) error {
		v, err := tx.LockVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if !v.Available {
			return ErrVehicleUnavailable
		}

		conflicts, err := tx.FindOverlapping(ctx, vehicleID, BlockingStatuses(), start, end)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return ErrVehicleUnavailable
		}

		if err := tx.Create(ctx, res); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("reservation created id=%s vehicle=%s user=%s %s..%s",
			res.ID, vehicleID, userID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return res, nil
}

// UpdateStatus 车主推进预订状态（目前只有 pending→confirmed）。
// 非车主 → ErrUnauthorized；非法流转 → ErrInvalidStatus。
// 不碰 vehicle.available：整车下架只由支付确认触发。
func (s *Service) UpdateStatus(ctx context.Context, reservationID, actorID string, to Status) (*Reservation, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if _, ok := ParseStatus(string(to)); !ok {
		return nil, ErrInvalidStatus
	}

	var updated *Reservation
	err := s.store.InTx(ctx, func(tx Store) error {
		res, err := tx.FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		v, err := tx.FindVehicle(ctx, res.VehicleID)
		if err != nil {
			return err
		}
		if v.OwnerID != actorID {
			return ErrUnauthorized
		}

		if err := res.ApplyTransition(to, s.now()); err != nil {
			return err
		}
		if err := tx.Save(ctx, res); err != nil {
			return err
		}
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Reservation, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.FindByID(ctx, id)
}

// ListForUser 租客视角：自己发起的预订。
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Reservation, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.ListByUser(ctx, userID)
}

// ListForOwner 车主视角：名下车辆收到的预订。
func (s *Service) ListForOwner(ctx context.Context, ownerID string) ([]Reservation, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.ListByOwner(ctx, ownerID)
}

// validateRange 要求严格 start < end（至少一晚）。
func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return ErrInvalidDateRange
	}
	return nil
}
