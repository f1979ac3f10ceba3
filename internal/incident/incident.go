package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"gorm.io/gorm"
)

// ErrNotParticipant 只能对自己参与的预订报障。
var ErrNotParticipant = errors.New("reservation does not belong to this user")

// Incident 租赁过程中的事故/故障上报，挂在预订上。
type Incident struct {
	ID            string                  `gorm:"primaryKey;size:36"`
	ReservationID string                  `gorm:"index;size:36;not null"`
	Reservation   reservation.Reservation `gorm:"constraint:OnDelete:CASCADE"`
	UserID        string                  `gorm:"index;size:36;not null"`
	Description   string                  `gorm:"type:text;not null"`
	ReportedAt    time.Time               `gorm:"autoCreateTime"`
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

func (r *Repo) Create(ctx context.Context, inc *Incident) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(inc).Error
}

func (r *Repo) FindReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var res reservation.Reservation
	if err := db.Where("id = ?", id).First(&res).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Incident, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Incident
	err := db.Where("user_id = ?", userID).Order("reported_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
