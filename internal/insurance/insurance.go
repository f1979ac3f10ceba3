package insurance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrUnknownOption 保险方案代码不存在。
	ErrUnknownOption = errors.New("unknown insurance option")
	// ErrNotRenter 只能为自己的预订选保险。
	ErrNotRenter = errors.New("reservation does not belong to this user")
)

// Option 保险方案。目录是静态的，随代码发布。
type Option struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	DailyCents    int64   `json:"daily_cents"`
	CoverageLimit float64 `json:"coverage_limit"`
}

// Options 方案目录，顺序即展示顺序。
var Options = []Option{
	{Code: "basic", Name: "Basic coverage", DailyCents: 0, CoverageLimit: 1000},
	{Code: "standard", Name: "Standard coverage", DailyCents: 500, CoverageLimit: 10000},
	{Code: "premium", Name: "Premium coverage", DailyCents: 1200, CoverageLimit: 50000},
}

func optionByCode(code string) (Option, bool) {
	for _, o := range Options {
		if o.Code == code {
			return o, true
		}
	}
	return Option{}, false
}

// Selection 某预订选择的保险方案；一个预订最多一条，重复选择覆盖。
type Selection struct {
	ID            string                  `gorm:"primaryKey;size:36"`
	ReservationID string                  `gorm:"uniqueIndex;size:36;not null"`
	Reservation   reservation.Reservation `gorm:"constraint:OnDelete:CASCADE"`
	OptionCode    string                  `gorm:"size:30;not null"`
	CreatedAt     time.Time               `gorm:"autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"autoUpdateTime"`
}

func (Selection) TableName() string {
	return "insurance_selections"
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

func (r *Repo) FindByReservation(ctx context.Context, reservationID string) (*Selection, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var sel Selection
	if err := db.Where("reservation_id = ?", reservationID).First(&sel).Error; err != nil {
		return nil, err
	}
	return &sel, nil
}

func (r *Repo) Save(ctx context.Context, sel *Selection) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(sel).Error
}

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// Select 为自己的预订选保险；已有选择时覆盖。
func (s *Service) Select(ctx context.Context, reservationID, userID, code string) (*Selection, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if _, ok := optionByCode(code); !ok {
		return nil, ErrUnknownOption
	}

	res, err := s.repo.FindReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrNotRenter
	}

	sel, err := s.repo.FindByReservation(ctx, reservationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sel = &Selection{ID: uuid.NewString(), ReservationID: reservationID}
	} else if err != nil {
		return nil, err
	}
	sel.OptionCode = code
	if err := s.repo.Save(ctx, sel); err != nil {
		return nil, err
	}
	return sel, nil
}

func (s *Service) GetForReservation(ctx context.Context, reservationID string) (*Selection, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByReservation(ctx, reservationID)
}
