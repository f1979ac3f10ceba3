package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/CarOnePlus/CarOnePlus/internal/user"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/gorm"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fakeStore 内存版 Store。CreatePayment 模拟 reservation_id 唯一索引，
// InTx 出错时整体回滚。
type fakeStore struct {
	users           map[string]*user.User
	vehicles        map[string]*vehicle.Vehicle
	reservations    map[string]*reservation.Reservation
	payments        map[string]*Payment // key: reservation_id
	failSaveVehicle bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]*user.User),
		vehicles:     make(map[string]*vehicle.Vehicle),
		reservations: make(map[string]*reservation.Reservation),
		payments:     make(map[string]*Payment),
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	snapV := make(map[string]*vehicle.Vehicle, len(f.vehicles))
	for k, v := range f.vehicles {
		cp := *v
		snapV[k] = &cp
	}
	snapR := make(map[string]*reservation.Reservation, len(f.reservations))
	for k, r := range f.reservations {
		cp := *r
		snapR[k] = &cp
	}
	snapP := make(map[string]*Payment, len(f.payments))
	for k, p := range f.payments {
		cp := *p
		snapP[k] = &cp
	}

	if err := fn(f); err != nil {
		f.vehicles = snapV
		f.reservations = snapR
		f.payments = snapP
		return err
	}
	return nil
}

func (f *fakeStore) FindReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) FindVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, reservation.ErrVehicleNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, p *Payment) error {
	if _, exists := f.payments[p.ReservationID]; exists {
		return gorm.ErrDuplicatedKey
	}
	cp := *p
	f.payments[p.ReservationID] = &cp
	return nil
}

func (f *fakeStore) SaveReservation(ctx context.Context, res *reservation.Reservation) error {
	cp := *res
	f.reservations[res.ID] = &cp
	return nil
}

func (f *fakeStore) SaveVehicle(ctx context.Context, v *vehicle.Vehicle) error {
	if f.failSaveVehicle {
		return errors.New("boom")
	}
	cp := *v
	f.vehicles[v.ID] = &cp
	return nil
}

func (f *fakeStore) FindUser(ctx context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) FindByReservation(ctx context.Context, reservationID string) (*Payment, error) {
	p, ok := f.payments[reservationID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type fakeSessions struct {
	lastParams *stripe.CheckoutSessionParams
}

func (f *fakeSessions) Create(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.lastParams = params
	return &stripe.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.test/cs_test_123"}, nil
}

func seedPendingReservation(store *fakeStore) {
	store.users["renter"] = &user.User{ID: "renter", Email: "renter@example.test"}
	store.vehicles["v1"] = &vehicle.Vehicle{ID: "v1", OwnerID: "owner", Title: "Kompakt", PricePerDay: 50, Available: true}
	store.reservations["r1"] = &reservation.Reservation{
		ID: "r1", VehicleID: "v1", UserID: "renter",
		StartDate: day("2024-06-01"), EndDate: day("2024-06-03"),
		Status: reservation.StatusPending,
	}
}

func newTestService(store Store, sessions SessionCreator) *Service {
	cfg := config.StripeConfig{
		SuccessURL: "https://example.test/payments/success",
		CancelURL:  "https://example.test/payments/cancel",
		Currency:   "eur",
	}
	s := NewService(store, sessions, cfg, nil, nil, nil)
	s.now = func() time.Time { return day("2024-06-01") }
	return s
}

type fakeMailer struct {
	sent []string // 收件人
}

func (f *fakeMailer) Send(to, subject, body string) error {
	f.sent = append(f.sent, to)
	return nil
}

func TestHandleCheckoutCompletedSendsConfirmationMail(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	mailer := &fakeMailer{}
	svc := newTestService(store, nil)
	svc.mailer = mailer

	ev := &CheckoutEvent{ReservationID: "r1", UserID: "renter", AmountCents: 15000, Currency: "eur"}
	if err := svc.HandleCheckoutCompleted(context.Background(), ev); err != nil {
		t.Fatalf("HandleCheckoutCompleted failed: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "renter@example.test" {
		t.Fatalf("confirmation mail not sent to renter: %v", mailer.sent)
	}
}

func TestHandleCheckoutCompleted(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	svc := newTestService(store, nil)

	ev := &CheckoutEvent{ReservationID: "r1", UserID: "renter", AmountCents: 15000, Currency: "eur", SessionID: "cs_1"}
	if err := svc.HandleCheckoutCompleted(context.Background(), ev); err != nil {
		t.Fatalf("HandleCheckoutCompleted failed: %v", err)
	}

	p := store.payments["r1"]
	if p == nil || p.Status != StatusSucceeded || p.AmountCents != 15000 {
		t.Fatalf("payment not recorded correctly: %+v", p)
	}
	res := store.reservations["r1"]
	if res.Status != reservation.StatusConfirmed || res.ConfirmedAt == nil {
		t.Fatalf("reservation not confirmed: %+v", res)
	}
	if store.vehicles["v1"].Available {
		t.Fatalf("vehicle must be unavailable after confirmation")
	}
}

func TestHandleCheckoutCompletedIdempotent(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	svc := newTestService(store, nil)

	ev := &CheckoutEvent{ReservationID: "r1", UserID: "renter", AmountCents: 15000, Currency: "eur", SessionID: "cs_1"}
	if err := svc.HandleCheckoutCompleted(context.Background(), ev); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	firstID := store.payments["r1"].ID

	// Stripe 会重放同一事件；第二次必须按成功返回且不产生新记录。
	if err := svc.HandleCheckoutCompleted(context.Background(), ev); err != nil {
		t.Fatalf("replay must succeed, got %v", err)
	}
	if len(store.payments) != 1 || store.payments["r1"].ID != firstID {
		t.Fatalf("replay created a second payment row")
	}
}

func TestHandleCheckoutCompletedUnknownReservation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)

	ev := &CheckoutEvent{ReservationID: "missing", AmountCents: 100, Currency: "eur"}
	err := svc.HandleCheckoutCompleted(context.Background(), ev)
	if !errors.Is(err, reservation.ErrReservationNotFound) {
		t.Fatalf("want ErrReservationNotFound, got %v", err)
	}
	if len(store.payments) != 0 {
		t.Fatalf("unknown reservation must not write a payment")
	}
}

func TestHandleCheckoutCompletedRollsBackOnFailure(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	store.failSaveVehicle = true
	svc := newTestService(store, nil)

	ev := &CheckoutEvent{ReservationID: "r1", UserID: "renter", AmountCents: 15000, Currency: "eur"}
	if err := svc.HandleCheckoutCompleted(context.Background(), ev); err == nil {
		t.Fatalf("expected error when vehicle update fails")
	}

	if len(store.payments) != 0 {
		t.Fatalf("failed transaction left a payment row behind")
	}
	if store.reservations["r1"].Status != reservation.StatusPending {
		t.Fatalf("failed transaction left reservation confirmed")
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	sessions := &fakeSessions{}
	svc := newTestService(store, sessions)

	sess, err := svc.CreateCheckoutSession(context.Background(), "r1", "renter")
	if err != nil {
		t.Fatalf("CreateCheckoutSession failed: %v", err)
	}
	if sess.ID != "cs_test_123" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	params := sessions.lastParams
	if params == nil || len(params.LineItems) != 1 {
		t.Fatalf("missing line items: %+v", params)
	}
	// 2024-06-01..03 含端点 3 天 × 50/天 = 15000 分
	if got := *params.LineItems[0].PriceData.UnitAmount; got != 15000 {
		t.Fatalf("amount = %d, want 15000", got)
	}
	if params.Metadata["reservation_id"] != "r1" || params.Metadata["user_id"] != "renter" {
		t.Fatalf("metadata not set: %v", params.Metadata)
	}
}

func TestCreateCheckoutSessionOnlyRenter(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	svc := newTestService(store, &fakeSessions{})

	if _, err := svc.CreateCheckoutSession(context.Background(), "r1", "someone-else"); !errors.Is(err, ErrNotRenter) {
		t.Fatalf("want ErrNotRenter, got %v", err)
	}
}

func TestCreateCheckoutSessionAlreadyConfirmed(t *testing.T) {
	store := newFakeStore()
	seedPendingReservation(store)
	store.reservations["r1"].Status = reservation.StatusConfirmed
	svc := newTestService(store, &fakeSessions{})

	if _, err := svc.CreateCheckoutSession(context.Background(), "r1", "renter"); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("want ErrAlreadyConfirmed, got %v", err)
	}
}
