package control

import (
	"time"

	"github.com/greenhaus/chargesched/model"
)

const clockFormat = "15:04"

// Explain builds a structured report by re-running ShouldCharge against the
// last committed snapshot, with the current config and time.Now(); it does
// not read telemetry. WillCharge is the rule outcome only: it does not account
// for a manual charge or disabled automation, so it can differ from the mode
// the loop has actually driven the inverter into.
func (l *Loop) Explain() model.StatusReport {
	snap := l.state.snapshot()
	cfg := l.currentConfig()

	willCharge, reason := ShouldCharge(
		snap.Plan, snap.Battery.SoC, cfg.AutoSafetySoc, cfg.AutoChargeBelowSoc,
		snap.Forecast.RemainingToday, cfg.AutoPvThreshold, time.Now(),
	)

	conditions := map[string]model.StatusCondition{
		"soc_safe": {
			Fulfilled: snap.Battery.SoC >= cfg.AutoSafetySoc,
			Label:     "State of charge is above the safety floor",
			Priority:  1,
		},
		"below_charge_limit": {
			Fulfilled: snap.Battery.SoC < cfg.AutoChargeBelowSoc,
			Label:     "State of charge is below the charge-until limit",
			Priority:  2,
		},
		"pv_sufficient": {
			Fulfilled: snap.Forecast.RemainingToday > cfg.AutoPvThreshold,
			Label:     "Remaining solar forecast covers demand without grid charging",
			Priority:  3,
		},
		"has_plan": {
			Fulfilled: snap.Plan.Valid,
			Label:     "A planned charge window exists",
			Priority:  4,
		},
	}

	report := model.StatusReport{
		Explanation: explanationFor(reason),
		WillCharge:  willCharge,
		Conditions:  conditions,
		CurrentSoC:  snap.Battery.SoC,
		TargetSoC:   snap.Plan.TargetSoC,
		PVRemaining: snap.Forecast.RemainingToday,
	}

	if snap.Plan.Valid {
		start := snap.Plan.PlannedStart.Format(clockFormat)
		end := snap.Plan.PlannedEnd.Format(clockFormat)
		report.PlannedStart = &start
		report.PlannedEnd = &end
	}

	return report
}

func explanationFor(reason string) string {
	switch reason {
	case "safety":
		return "Charging to protect the battery from discharging below the safety floor"
	case "full":
		return "Not charging: battery already at or above the charge-until limit"
	case "pv_sufficient":
		return "Not charging: remaining solar forecast is expected to cover demand"
	case "planned":
		return "Charging within the planned low-price window"
	default:
		return "Waiting for a cheaper window or a safety condition"
	}
}
