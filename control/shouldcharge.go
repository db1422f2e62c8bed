package control

import (
	"time"

	"github.com/greenhaus/chargesched/model"
)

// ShouldCharge evaluates the single rule that decides whether the battery
// should be charging right now, short-circuiting in priority order: safety
// overrides everything, then "already full", then "enough PV coming", then
// the planner's chosen window, and finally "waiting". Grounded on the
// original tibber optimizer's should_charge_now, generalized from its
// hardcoded PV threshold to the configured autoPvThreshold.
func ShouldCharge(plan model.ChargingPlan, currentSoC, autoSafetySoc, autoChargeBelowSoc, pvRemainingToday, autoPvThreshold float64, now time.Time) (bool, string) {
	if currentSoC < autoSafetySoc {
		return true, "safety"
	}
	if currentSoC >= autoChargeBelowSoc {
		return false, "full"
	}
	if pvRemainingToday > autoPvThreshold {
		return false, "pv_sufficient"
	}
	if plan.Valid && !now.Before(plan.PlannedStart) {
		return true, "planned"
	}
	return false, "waiting"
}
