package models

import "testing"

func TestMonthOf(t *testing.T) {
	cases := []struct {
		day   float64
		month int
	}{
		{1, 0},
		{DaysPerMonth - 0.01, 0},
		{DaysPerMonth, 1},
		{DaysPerMonth * 6, 6},
		{364.9, 11},
	}
	for _, tc := range cases {
		if got := MonthOf(tc.day); got != tc.month {
			t.Fatalf("MonthOf(%v) = %d, want %d", tc.day, got, tc.month)
		}
	}
}

func TestEndOfMonthIsStrictlyAfterDay(t *testing.T) {
	for _, day := range []float64{1, 15, DaysPerMonth, 100, 364} {
		end := EndOfMonth(day)
		if end <= day {
			t.Fatalf("EndOfMonth(%v) = %v, not after day", day, end)
		}
		if MonthOf(day)+1 != int(end/DaysPerMonth+0.5) {
			t.Fatalf("EndOfMonth(%v) = %v is not the next boundary", day, end)
		}
	}
}

func TestPhaseTransitions(t *testing.T) {
	allowed := []struct {
		from, to RoomPhase
	}{
		{RoomPhaseWaiting, RoomPhaseStarting},
		{RoomPhaseStarting, RoomPhaseInProgress},
		{RoomPhaseInProgress, RoomPhaseCompleted},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}
	forbidden := []struct {
		from, to RoomPhase
	}{
		{RoomPhaseCompleted, RoomPhaseWaiting},
		{RoomPhaseCompleted, RoomPhaseInProgress},
		{RoomPhaseInProgress, RoomPhaseWaiting},
		{RoomPhaseInProgress, RoomPhaseStarting},
		{RoomPhaseWaiting, RoomPhaseInProgress},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("%s -> %s should be forbidden", tc.from, tc.to)
		}
	}
}

func TestListingStatusTerminal(t *testing.T) {
	if ListingStatusActive.Terminal() {
		t.Fatal("ACTIVE is not terminal")
	}
	for _, s := range []ListingStatus{ListingStatusSold, ListingStatusCancelled, ListingStatusExpired} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}
