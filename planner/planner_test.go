package planner

import (
	"testing"
	"time"
)

func TestPlanArithmetic(t *testing.T) {
	chargeEnd := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

	plan := Plan(chargeEnd, 60, 95, 18)

	expectedDuration := 63 * time.Minute
	gotDuration := plan.PlannedEnd.Sub(plan.PlannedStart)
	if gotDuration != expectedDuration {
		t.Errorf("duration got %v, expected %v", gotDuration, expectedDuration)
	}

	expectedStart := chargeEnd.Add(-expectedDuration)
	if !plan.PlannedStart.Equal(expectedStart) {
		t.Errorf("plannedStart got %v, expected %v", plan.PlannedStart, expectedStart)
	}
	if !plan.PlannedEnd.Equal(chargeEnd) {
		t.Errorf("plannedEnd got %v, expected %v", plan.PlannedEnd, chargeEnd)
	}
}

func TestPlanAlreadyAtTarget(t *testing.T) {
	chargeEnd := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

	plan := Plan(chargeEnd, 95, 95, 18)

	if !plan.PlannedStart.Equal(chargeEnd) || !plan.PlannedEnd.Equal(chargeEnd) {
		t.Errorf("expected zero-duration plan at chargeEnd, got start=%v end=%v", plan.PlannedStart, plan.PlannedEnd)
	}
}

func TestPlanAboveTarget(t *testing.T) {
	chargeEnd := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

	plan := Plan(chargeEnd, 98, 95, 18)

	if !plan.PlannedStart.Equal(chargeEnd) || !plan.PlannedEnd.Equal(chargeEnd) {
		t.Errorf("expected zero-duration plan when already above target, got start=%v end=%v", plan.PlannedStart, plan.PlannedEnd)
	}
}

func TestPlanInvariantStartBeforeEnd(t *testing.T) {
	chargeEnd := time.Date(2024, 4, 1, 6, 0, 0, 0, time.UTC)

	for _, soc := range []float64{0, 10, 50, 94.9} {
		plan := Plan(chargeEnd, soc, 95, 18)
		if plan.PlannedStart.After(plan.PlannedEnd) {
			t.Errorf("soc=%v: plannedStart %v is after plannedEnd %v", soc, plan.PlannedStart, plan.PlannedEnd)
		}
	}
}
