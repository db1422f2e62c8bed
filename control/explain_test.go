package control

import (
	"testing"
	"time"

	"github.com/greenhaus/chargesched/config"
	"github.com/greenhaus/chargesched/model"
)

func newTestLoop(cfg config.ConfigProfile) *Loop {
	l := &Loop{cfg: cfg}
	l.state.setMode(model.ModeInternal)
	return l
}

func TestExplainSafety(t *testing.T) {
	cfg := config.Default()
	cfg.AutoSafetySoc = 20
	cfg.AutoChargeBelowSoc = 95
	cfg.AutoPvThreshold = 5

	l := newTestLoop(cfg)
	l.state.setBattery(model.BatteryState{SoC: 15}, time.Now())
	l.state.setForecast(model.PVForecast{RemainingToday: 20})

	report := l.Explain()
	if !report.WillCharge {
		t.Error("expected WillCharge=true for a SoC below the safety floor")
	}
	if !report.Conditions["below_charge_limit"].Fulfilled {
		t.Error("expected below_charge_limit to be fulfilled at soc=15, limit=95")
	}
	if report.Conditions["soc_safe"].Fulfilled {
		t.Error("expected soc_safe to be unfulfilled below the safety floor")
	}
}

func TestExplainPlannedWindow(t *testing.T) {
	cfg := config.Default()
	cfg.AutoSafetySoc = 20
	cfg.AutoChargeBelowSoc = 95
	cfg.AutoPvThreshold = 5

	l := newTestLoop(cfg)
	now := time.Now()
	l.state.setBattery(model.BatteryState{SoC: 70}, now)
	l.state.setForecast(model.PVForecast{RemainingToday: 1})
	l.state.setPlan(model.ChargingPlan{
		Valid:        true,
		PlannedStart: now.Add(-time.Minute),
		PlannedEnd:   now.Add(45 * time.Minute),
		TargetSoC:    95,
	})

	report := l.Explain()
	if !report.WillCharge {
		t.Error("expected WillCharge=true within the planned window")
	}
	if report.PlannedStart == nil || report.PlannedEnd == nil {
		t.Fatal("expected PlannedStart/PlannedEnd to be populated for a valid plan")
	}
	if report.TargetSoC != 95 {
		t.Errorf("got TargetSoC=%v, expected 95", report.TargetSoC)
	}
}

func TestExplainNoPlanLeavesPlannedTimesNil(t *testing.T) {
	l := newTestLoop(config.Default())
	report := l.Explain()
	if report.PlannedStart != nil || report.PlannedEnd != nil {
		t.Error("expected nil planned times when no plan has been computed")
	}
}
