package reservation

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
		ok   bool
	}{
		{"pending", StatusPending, true},
		{"confirmed", StatusConfirmed, true},
		{"  Pending ", StatusPending, true},
		{"CONFIRMED", StatusConfirmed, true},
		{"cancelled", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseStatus(c.raw)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParseStatus(%q) = (%q, %v), want (%q, %v)", c.raw, got, ok, c.want, c.ok)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPending, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestApplyTransitionConfirm(t *testing.T) {
	now := day("2024-06-01")
	r := &Reservation{Status: StatusPending}
	if err := r.ApplyTransition(StatusConfirmed, now); err != nil {
		t.Fatalf("ApplyTransition returned error: %v", err)
	}
	if r.Status != StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", r.Status)
	}
	if r.ConfirmedAt == nil || !r.ConfirmedAt.Equal(now) {
		t.Fatalf("ConfirmedAt = %v, want %v", r.ConfirmedAt, now)
	}
}

func TestApplyTransitionIdempotent(t *testing.T) {
	confirmed := day("2024-06-01")
	r := &Reservation{Status: StatusConfirmed, ConfirmedAt: &confirmed}
	if err := r.ApplyTransition(StatusConfirmed, day("2024-06-02")); err != nil {
		t.Fatalf("self transition should be a no-op, got %v", err)
	}
	if !r.ConfirmedAt.Equal(confirmed) {
		t.Fatalf("ConfirmedAt changed on no-op transition: %v", r.ConfirmedAt)
	}
}

func TestApplyTransitionRejectsDowngrade(t *testing.T) {
	r := &Reservation{Status: StatusConfirmed}
	if err := r.ApplyTransition(StatusPending, time.Now()); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("confirmed→pending should fail with ErrInvalidStatus, got %v", err)
	}
	if r.Status != StatusConfirmed {
		t.Fatalf("status changed on rejected transition: %s", r.Status)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     string
		want                           bool
	}{
		{"contained", "2024-06-05", "2024-06-07", "2024-06-01", "2024-06-10", true},
		{"containing", "2024-06-01", "2024-06-10", "2024-06-05", "2024-06-07", true},
		{"partial left", "2024-06-01", "2024-06-05", "2024-06-04", "2024-06-10", true},
		{"shared end/start day", "2024-06-01", "2024-06-10", "2024-06-10", "2024-06-15", true},
		{"shared start/end day", "2024-06-10", "2024-06-15", "2024-06-01", "2024-06-10", true},
		{"adjacent after", "2024-06-01", "2024-06-10", "2024-06-11", "2024-06-15", false},
		{"adjacent before", "2024-06-11", "2024-06-15", "2024-06-01", "2024-06-10", false},
		{"same single day", "2024-06-05", "2024-06-05", "2024-06-05", "2024-06-05", true},
	}
	for _, c := range cases {
		got := Overlaps(day(c.aStart), day(c.aEnd), day(c.bStart), day(c.bEnd))
		if got != c.want {
			t.Fatalf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}
