package model

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNights(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		want     int
	}{
		{"one night", date(2026, 10, 1), date(2026, 10, 2), 1},
		{"three nights", date(2026, 10, 1), date(2026, 10, 4), 3},
		{"across month boundary", date(2026, 10, 30), date(2026, 11, 2), 3},
		{"same day", date(2026, 10, 1), date(2026, 10, 1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Nights(tt.checkIn, tt.checkOut); got != tt.want {
				t.Errorf("Nights() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTotalPriceCents(t *testing.T) {
	// 3 nights at 100 cents/night = 300.
	if got := TotalPriceCents(date(2026, 10, 1), date(2026, 10, 4), 100); got != 300 {
		t.Errorf("TotalPriceCents() = %d, want 300", got)
	}
	if got := TotalPriceCents(date(2026, 10, 4), date(2026, 10, 1), 100); got != 0 {
		t.Errorf("TotalPriceCents() with inverted range = %d, want 0", got)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                 string
		aIn, aOut, bIn, bOut time.Time
		want                 bool
	}{
		{
			"identical ranges",
			date(2026, 10, 1), date(2026, 10, 5),
			date(2026, 10, 1), date(2026, 10, 5),
			true,
		},
		{
			"partial overlap",
			date(2026, 10, 1), date(2026, 10, 5),
			date(2026, 10, 3), date(2026, 10, 8),
			true,
		},
		{
			"contained range",
			date(2026, 10, 1), date(2026, 10, 10),
			date(2026, 10, 3), date(2026, 10, 5),
			true,
		},
		{
			"touching boundary is not overlap",
			date(2026, 10, 1), date(2026, 10, 5),
			date(2026, 10, 5), date(2026, 10, 8),
			false,
		},
		{
			"touching boundary reversed",
			date(2026, 10, 5), date(2026, 10, 8),
			date(2026, 10, 1), date(2026, 10, 5),
			false,
		},
		{
			"disjoint ranges",
			date(2026, 10, 1), date(2026, 10, 3),
			date(2026, 10, 10), date(2026, 10, 12),
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aIn, tt.aOut, tt.bIn, tt.bOut); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateStay(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		wantErr  bool
	}{
		{"valid future stay", date(2026, 10, 1), date(2026, 10, 5), false},
		{"tomorrow is valid", date(2026, 9, 2), date(2026, 9, 3), false},
		{"check_in today rejected", date(2026, 9, 1), date(2026, 9, 5), true},
		{"check_in in past", date(2026, 8, 1), date(2026, 10, 5), true},
		{"check_out before check_in", date(2026, 10, 5), date(2026, 10, 1), true},
		{"zero-length stay", date(2026, 10, 1), date(2026, 10, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStay(tt.checkIn, tt.checkOut, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStay() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGuests(t *testing.T) {
	if err := ValidateGuests(0, 4); err == nil {
		t.Error("expected error for zero guests")
	}
	if err := ValidateGuests(5, 4); err == nil {
		t.Error("expected error for guests over capacity")
	}
	if err := ValidateGuests(4, 4); err != nil {
		t.Errorf("guests at capacity should be valid, got %v", err)
	}
	if err := ValidateGuests(10, 0); err != nil {
		t.Errorf("zero capacity means unlimited, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestActive(t *testing.T) {
	for status, want := range map[BookingStatus]bool{
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCancelled: false,
		StatusCompleted: false,
	} {
		if got := status.Active(); got != want {
			t.Errorf("%s.Active() = %v, want %v", status, got, want)
		}
	}
}
