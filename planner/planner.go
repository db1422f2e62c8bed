// Package planner back-computes when grid charging should start, using the
// price optimizer's chosen end time, the SoC delta, and a charge-rate model.
package planner

import (
	"time"

	"github.com/greenhaus/chargesched/model"
)

// Plan computes the ChargingPlan for the given charge end time and SoC
// target. If currentSoC is already at or above targetSoC, it returns a
// zero-duration plan with plannedStart == plannedEnd == chargeEnd. The plan
// is purely advisory -- the control loop may still abort charging if its own
// rules say so.
func Plan(chargeEnd time.Time, currentSoC, targetSoC, chargeDurationPer10Percent float64) model.ChargingPlan {
	socDiff := targetSoC - currentSoC

	if socDiff <= 0 {
		return model.ChargingPlan{
			PlannedStart:   chargeEnd,
			PlannedEnd:     chargeEnd,
			TargetSoC:      targetSoC,
			LastCalculated: time.Now(),
			Valid:          true,
		}
	}

	durationMinutes := (socDiff / 10) * chargeDurationPer10Percent
	plannedStart := chargeEnd.Add(-time.Duration(durationMinutes * float64(time.Minute)))

	return model.ChargingPlan{
		PlannedStart:   plannedStart,
		PlannedEnd:     chargeEnd,
		TargetSoC:      targetSoC,
		LastCalculated: time.Now(),
		Valid:          true,
	}
}
