package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repo 基于 GORM 的预订存储，实现 Store。
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

// InTx 在单个数据库事务内执行 fn；fn 返回错误则整体回滚。
// fn 收到的 Store 绑定事务连接，创建预订的“锁行→查冲突→写入”都走它。
func (r *Repo) InTx(ctx context.Context, fn func(tx Store) error) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}

// LockVehicle SELECT ... FOR UPDATE 锁住车辆行，
// 串行化同一辆车上的并发预订。
func (r *Repo) LockVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v vehicle.Vehicle
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *Repo) FindVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v vehicle.Vehicle
	if err := db.Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

// FindOverlapping 查与 [start, end]（含端点）相交、状态在 statuses 内的预订。
func (r *Repo) FindOverlapping(ctx context.Context, vehicleID string, statuses []Status, start, end time.Time) ([]Reservation, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Reservation
	err := db.Where("vehicle_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
		vehicleID, statuses, end, start).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, res *Reservation) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(res).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Reservation, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var res Reservation
	if err := db.Where("id = ?", id).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *Repo) Save(ctx context.Context, res *Reservation) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(res).Error
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Reservation, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Reservation
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOwner 车主视角：名下所有车辆收到的预订。
func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]Reservation, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Reservation
	err := db.Joins("JOIN vehicles ON vehicles.id = reservations.vehicle_id").
		Where("vehicles.owner_id = ?", ownerID).
		Order("reservations.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
