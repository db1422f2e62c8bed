package control

import (
	"testing"

	"github.com/greenhaus/chargesched/model"
)

func TestLogRingDropsOldest(t *testing.T) {
	var s AppState
	for i := 0; i < logCapacity+10; i++ {
		s.log(model.LogInfo, "entry")
	}
	snap := s.snapshot()
	if len(snap.Logs) != logCapacity {
		t.Errorf("got %d log entries, expected %d", len(snap.Logs), logCapacity)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	var s AppState
	s.setPrices([]model.PriceSample{{Total: 1}})

	snap := s.snapshot()
	snap.Prices[0].Total = 99

	again := s.snapshot()
	if again.Prices[0].Total != 1 {
		t.Errorf("mutating a snapshot's slice leaked into the source state: got %v", again.Prices[0].Total)
	}
}

func TestSetModeRoundTrips(t *testing.T) {
	var s AppState
	s.setMode(model.ModeAutoCharging)
	if s.currentMode() != model.ModeAutoCharging {
		t.Errorf("got %v, expected %v", s.currentMode(), model.ModeAutoCharging)
	}
}
