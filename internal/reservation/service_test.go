package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
)

// fakeStore 内存版 Store。InTx 串行执行并在出错时整体回滚，
// 行为上等价于“锁车辆行 + 事务”。
type fakeStore struct {
	mu           sync.Mutex
	vehicles     map[string]*vehicle.Vehicle
	reservations map[string]*Reservation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vehicles:     make(map[string]*vehicle.Vehicle),
		reservations: make(map[string]*Reservation),
	}
}

func (f *fakeStore) addVehicle(v vehicle.Vehicle) {
	f.vehicles[v.ID] = &v
}

func (f *fakeStore) addReservation(r Reservation) {
	f.reservations[r.ID] = &r
}

func (f *fakeStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapVehicles := make(map[string]*vehicle.Vehicle, len(f.vehicles))
	for k, v := range f.vehicles {
		cp := *v
		snapVehicles[k] = &cp
	}
	snapReservations := make(map[string]*Reservation, len(f.reservations))
	for k, r := range f.reservations {
		cp := *r
		snapReservations[k] = &cp
	}

	if err := fn(f); err != nil {
		f.vehicles = snapVehicles
		f.reservations = snapReservations
		return err
	}
	return nil
}

func (f *fakeStore) LockVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	return f.FindVehicle(ctx, id)
}

func (f *fakeStore) FindVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, ErrVehicleNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) FindOverlapping(ctx context.Context, vehicleID string, statuses []Status, start, end time.Time) ([]Reservation, error) {
	blocked := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		blocked[s] = true
	}
	var out []Reservation
	for _, r := range f.reservations {
		if r.VehicleID != vehicleID || !blocked[r.Status] {
			continue
		}
		if Overlaps(r.StartDate, r.EndDate, start, end) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, res *Reservation) error {
	cp := *res
	f.reservations[res.ID] = &cp
	return nil
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (*Reservation, error) {
	r, ok := f.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) Save(ctx context.Context, res *Reservation) error {
	cp := *res
	f.reservations[res.ID] = &cp
	return nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]Reservation, error) {
	var out []Reservation
	for _, r := range f.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, ownerID string) ([]Reservation, error) {
	var out []Reservation
	for _, r := range f.reservations {
		v, ok := f.vehicles[r.VehicleID]
		if ok && v.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func newTestService(store Store) *Service {
	s := NewService(store, nil)
	s.now = func() time.Time { return day("2024-06-20") }
	return s
}

func TestCreateReservationInvalidRange(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	svc := newTestService(store)

	_, err := svc.CreateReservation(context.Background(), "u1", "v1", day("2024-06-10"), day("2024-06-05"))
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("want ErrInvalidDateRange, got %v", err)
	}
	if len(store.reservations) != 0 {
		t.Fatalf("invalid request must not write, found %d reservations", len(store.reservations))
	}
}

func TestCreateReservationUnknownVehicle(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.CreateReservation(context.Background(), "u1", "missing", day("2024-06-01"), day("2024-06-05"))
	if !errors.Is(err, ErrVehicleNotFound) {
		t.Fatalf("want ErrVehicleNotFound, got %v", err)
	}
}

func TestCreateReservationBlockedByConfirmedOverlap(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "u1",
		StartDate: day("2024-06-05"), EndDate: day("2024-06-07"),
		Status: StatusConfirmed,
	})
	svc := newTestService(store)

	_, err := svc.CreateReservation(context.Background(), "u2", "v1", day("2024-06-01"), day("2024-06-10"))
	if !errors.Is(err, ErrVehicleUnavailable) {
		t.Fatalf("want ErrVehicleUnavailable, got %v", err)
	}
	if len(store.reservations) != 1 {
		t.Fatalf("blocked request must not write, found %d reservations", len(store.reservations))
	}
}

func TestCreateReservationPendingAlsoBlocks(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "u1",
		StartDate: day("2024-06-05"), EndDate: day("2024-06-07"),
		Status: StatusPending,
	})
	svc := newTestService(store)

	_, err := svc.CreateReservation(context.Background(), "u2", "v1", day("2024-06-07"), day("2024-06-09"))
	if !errors.Is(err, ErrVehicleUnavailable) {
		t.Fatalf("pending reservation must block, got %v", err)
	}
}

func TestCreateReservationAdjacentRangeSucceeds(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "u1",
		StartDate: day("2024-06-05"), EndDate: day("2024-06-10"),
		Status: StatusConfirmed,
	})
	svc := newTestService(store)

	res, err := svc.CreateReservation(context.Background(), "u2", "v1", day("2024-06-11"), day("2024-06-15"))
	if err != nil {
		t.Fatalf("adjacent range should be bookable, got %v", err)
	}
	if res.Status != StatusPending {
		t.Fatalf("new reservation status = %s, want pending", res.Status)
	}
	if len(store.reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(store.reservations))
	}
}

func TestCreateReservationVehicleMarkedUnavailable(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: false})
	svc := newTestService(store)

	_, err := svc.CreateReservation(context.Background(), "u1", "v1", day("2024-07-01"), day("2024-07-05"))
	if !errors.Is(err, ErrVehicleUnavailable) {
		t.Fatalf("unavailable vehicle must reject bookings, got %v", err)
	}
}

func TestCreateReservationConcurrentOnlyOneWins(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	svc := newTestService(store)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateReservation(context.Background(), "u1", "v1", day("2024-06-01"), day("2024-06-10"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrVehicleUnavailable) || errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one booking must win, got %d wins / %d conflicts", wins, conflicts)
	}
	if len(store.reservations) != 1 {
		t.Fatalf("store holds %d reservations, want 1", len(store.reservations))
	}
}

func TestUpdateStatusOwnerConfirms(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "renter",
		StartDate: day("2024-06-01"), EndDate: day("2024-06-05"),
		Status: StatusPending,
	})
	svc := newTestService(store)

	res, err := svc.UpdateStatus(context.Background(), "r1", "owner", StatusConfirmed)
	if err != nil {
		t.Fatalf("owner confirm failed: %v", err)
	}
	if res.Status != StatusConfirmed || res.ConfirmedAt == nil {
		t.Fatalf("reservation not confirmed: status=%s confirmed_at=%v", res.Status, res.ConfirmedAt)
	}
	// 整车下架只由支付确认触发，状态接口不碰 available
	if !store.vehicles["v1"].Available {
		t.Fatalf("status update must not touch vehicle availability")
	}
}

func TestUpdateStatusByNonOwner(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "renter",
		StartDate: day("2024-06-01"), EndDate: day("2024-06-05"),
		Status: StatusPending,
	})
	svc := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), "r1", "renter", StatusConfirmed)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if store.reservations["r1"].Status != StatusPending {
		t.Fatalf("reservation changed despite unauthorized caller")
	}
	if !store.vehicles["v1"].Available {
		t.Fatalf("vehicle changed despite unauthorized caller")
	}
}

func TestUpdateStatusRejectsDowngrade(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: false})
	confirmed := day("2024-06-01")
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "renter",
		StartDate: day("2024-06-01"), EndDate: day("2024-06-05"),
		Status: StatusConfirmed, ConfirmedAt: &confirmed,
	})
	svc := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), "r1", "owner", StatusPending)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
	if store.reservations["r1"].Status != StatusConfirmed {
		t.Fatalf("terminal status must not change")
	}
}

func TestCheckAvailabilityBoundaries(t *testing.T) {
	store := newFakeStore()
	store.addVehicle(vehicle.Vehicle{ID: "v1", OwnerID: "owner", Available: true})
	store.addReservation(Reservation{
		ID: "r1", VehicleID: "v1", UserID: "u1",
		StartDate: day("2024-06-05"), EndDate: day("2024-06-10"),
		Status: StatusConfirmed,
	})
	svc := newTestService(store)

	av, err := svc.CheckAvailability(context.Background(), "v1", day("2024-06-10"), day("2024-06-12"))
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if av.Available || len(av.Conflicts) != 1 {
		t.Fatalf("shared boundary day must conflict: available=%v conflicts=%d", av.Available, len(av.Conflicts))
	}

	av, err = svc.CheckAvailability(context.Background(), "v1", day("2024-06-11"), day("2024-06-12"))
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !av.Available {
		t.Fatalf("adjacent range must be available")
	}
}
