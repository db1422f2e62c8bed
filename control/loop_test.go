package control

import (
	"testing"

	"github.com/greenhaus/chargesched/config"
	"github.com/greenhaus/chargesched/model"
)

// TestDriveSkipsManualMode confirms scenario 6: a rule-tick that would
// otherwise stop charging must never touch a manual session. l.inverter and
// l.setpoint are left nil; the test only passes if drive returns before
// reaching either one.
func TestDriveSkipsManualMode(t *testing.T) {
	l := newTestLoop(config.Default())
	l.state.setMode(model.ModeManualCharging)

	l.drive(config.Default(), false, "pv_sufficient")

	if l.state.currentMode() != model.ModeManualCharging {
		t.Errorf("got mode %v, expected manual charging to remain untouched", l.state.currentMode())
	}
}

func TestDriveSkipsWhenAutomationDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.AutoOptimizationEnabled = false

	l := newTestLoop(cfg)

	l.drive(cfg, true, "safety")

	if l.state.currentMode() != model.ModeInternal {
		t.Errorf("got mode %v, expected Internal to remain untouched with automation disabled", l.state.currentMode())
	}
}

func TestDriveNoOpWhenAlreadyInternalAndNotCharging(t *testing.T) {
	l := newTestLoop(config.Default())

	l.drive(config.Default(), false, "waiting")

	if l.state.currentMode() != model.ModeInternal {
		t.Errorf("got mode %v, expected Internal", l.state.currentMode())
	}
}
