package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/mail"
	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/CarOnePlus/CarOnePlus/internal/user"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

var (
	// ErrDuplicatePayment 该预订已有支付记录（幂等重放）。
	ErrDuplicatePayment = errors.New("payment already recorded for reservation")
	// ErrNotRenter 只有下单的租客能为自己的预订发起支付。
	ErrNotRenter = errors.New("only the renter can pay for this reservation")
	// ErrAlreadyConfirmed 预订已确认，无需再次支付。
	ErrAlreadyConfirmed = errors.New("reservation already confirmed")
)

// Store 支付服务依赖的存储能力。
type Store interface {
	InTx(ctx context.Context, fn func(tx Store) error) error
	FindReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	FindVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error)
	CreatePayment(ctx context.Context, p *Payment) error
	SaveReservation(ctx context.Context, res *reservation.Reservation) error
	SaveVehicle(ctx context.Context, v *vehicle.Vehicle) error
	FindUser(ctx context.Context, id string) (*user.User, error)
	FindByReservation(ctx context.Context, reservationID string) (*Payment, error)
}

// SessionCreator 创建 Stripe Checkout 会话。生产实现走 session.New。
type SessionCreator interface {
	Create(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// VehicleCache 支付确认把车辆置为不可租后需要失效详情缓存。
type VehicleCache interface {
	InvalidateCache(ctx context.Context, vehicleID string)
}

type Service struct {
	store    Store
	sessions SessionCreator
	cfg      config.StripeConfig
	cache    VehicleCache
	mailer   mail.Mailer
	log      logger.Logger
	now      func() time.Time
}

func NewService(store Store, sessions SessionCreator, cfg config.StripeConfig, cache VehicleCache, mailer mail.Mailer, log logger.Logger) *Service {
	return &Service{store: store, sessions: sessions, cfg: cfg, cache: cache, mailer: mailer, log: log, now: time.Now}
}

// CreateCheckoutSession 为自己的 pending 预订创建 Stripe 结账会话。
// 金额 = 含端点的天数 × 日价，单位为最小货币单位（分）。
func (s *Service) CreateCheckoutSession(ctx context.Context, reservationID, actorID string) (*stripe.CheckoutSession, error) {
	if s == nil || s.store == nil || s.sessions == nil {
		return nil, fmt.Errorf("service not initialized")
	}

	res, err := s.store.FindReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != actorID {
		return nil, ErrNotRenter
	}
	if res.Status == reservation.StatusConfirmed {
		return nil, ErrAlreadyConfirmed
	}
	v, err := s.store.FindVehicle(ctx, res.VehicleID)
	if err != nil {
		return nil, err
	}

	days := int64(res.EndDate.Sub(res.StartDate).Hours()/24) + 1
	amountCents := days * int64(v.PricePerDay*100)

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.cfg.Currency),
					UnitAmount: stripe.Int64(amountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(v.Title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("reservation_id", res.ID)
	params.AddMetadata("user_id", actorID)

	sess, err := s.sessions.Create(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return sess, nil
}

// HandleCheckoutCompleted 支付成功的落库。单事务内依次：
//  1. 查预订（不存在则整体失败，无任何写入）
//  2. 插入支付记录（reservation_id 唯一键命中 → 幂等重放，按成功返回）
//  3. 预订 pending→confirmed
//  4. 车辆 available 置 false
//
// 任一步失败整个事务回滚，不会出现“有支付记录但预订还是 pending”的中间态。
func (s *Service) HandleCheckoutCompleted(ctx context.Context, ev *CheckoutEvent) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	if ev == nil || ev.ReservationID == "" {
		return fmt.Errorf("checkout event missing reservation_id")
	}

	var (
		vehicleID string
		renterID  string
	)
	err := s.store.InTx(ctx, func(tx Store) error {
		res, err := tx.FindReservation(ctx, ev.ReservationID)
		if err != nil {
			return err
		}
		vehicleID = res.VehicleID
		renterID = res.UserID

		p := &Payment{
			ID:              uuid.NewString(),
			ReservationID:   res.ID,
			UserID:          ev.UserID,
			AmountCents:     ev.AmountCents,
			Currency:        ev.Currency,
			Status:          StatusSucceeded,
			StripeSessionID: ev.SessionID,
		}
		if p.UserID == "" {
			p.UserID = res.UserID
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePayment
			}
			return err
		}

		if err := res.ApplyTransition(reservation.StatusConfirmed, s.now()); err != nil {
			return err
		}
		if err := tx.SaveReservation(ctx, res); err != nil {
			return err
		}

		v, err := tx.FindVehicle(ctx, res.VehicleID)
		if err != nil {
			return err
		}
		v.Available = false
		return tx.SaveVehicle(ctx, v)
	})

	if errors.Is(err, ErrDuplicatePayment) {
		if s.log != nil {
			s.log.Infof("duplicate checkout event for reservation %s, already processed", ev.ReservationID)
		}
		return nil
	}
	if err != nil {
		return err
	}

	if s.cache != nil && vehicleID != "" {
		s.cache.InvalidateCache(ctx, vehicleID)
	}
	s.sendConfirmationMail(ctx, renterID, ev.ReservationID)
	if s.log != nil {
		s.log.Infof("payment recorded reservation=%s amount=%d %s", ev.ReservationID, ev.AmountCents, ev.Currency)
	}
	return nil
}

// sendConfirmationMail 确认邮件尽力而为，失败只记日志。
func (s *Service) sendConfirmationMail(ctx context.Context, renterID, reservationID string) {
	if s.mailer == nil || renterID == "" {
		return
	}
	u, err := s.store.FindUser(ctx, renterID)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("confirmation mail skipped, user lookup failed: %v", err)
		}
		return
	}
	body := fmt.Sprintf("Your reservation %s is confirmed. Thanks for booking with CarOnePlus.", reservationID)
	if err := s.mailer.Send(u.Email, "Reservation confirmed", body); err != nil && s.log != nil {
		s.log.Warnf("failed to send confirmation mail: %v", err)
	}
}

// GetForReservation 查询某预订的支付记录（租客或车主视角均可）。
func (s *Service) GetForReservation(ctx context.Context, reservationID string) (*Payment, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.FindByReservation(ctx, reservationID)
}
