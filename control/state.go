package control

import (
	"sync"
	"time"

	"github.com/greenhaus/chargesched/model"
)

// logCapacity bounds the operator-facing log ring; the oldest entry is
// dropped once it fills.
const logCapacity = 100

// Mode is the inverter control mode driven by the loop's state machine.
type Mode = model.ControlMode

// AppState is the single mutable bundle the control loop owns: battery
// telemetry, the advisory plan, the PV forecast, the price curve, the
// inverter's mode, and the operator-facing log ring. One mutex guards all of
// it; readers (the status explainer, the HTTP surface) take a consistent
// snapshot rather than touching fields directly.
type AppState struct {
	mu sync.RWMutex

	battery          model.BatteryState
	batteryUpdatedAt time.Time
	plan             model.ChargingPlan
	forecast         model.PVForecast
	prices           []model.PriceSample
	mode             Mode
	logs             []model.LogEntry
}

// Snapshot is a read-only copy of AppState taken under its read lock.
type Snapshot struct {
	Battery          model.BatteryState
	BatteryUpdatedAt time.Time
	Plan             model.ChargingPlan
	Forecast         model.PVForecast
	Prices           []model.PriceSample
	Mode             Mode
	Logs             []model.LogEntry
}

func (s *AppState) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Battery:          s.battery,
		BatteryUpdatedAt: s.batteryUpdatedAt,
		Plan:             s.plan,
		Forecast:         s.forecast,
		Prices:           append([]model.PriceSample(nil), s.prices...),
		Mode:             s.mode,
		Logs:             append([]model.LogEntry(nil), s.logs...),
	}
}

func (s *AppState) setBattery(b model.BatteryState, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = b
	s.batteryUpdatedAt = at
}

func (s *AppState) setPlan(p model.ChargingPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = p
}

func (s *AppState) setForecast(f model.PVForecast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecast = f
}

func (s *AppState) setPrices(p []model.PriceSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = p
}

func (s *AppState) setMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *AppState) currentMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *AppState) log(level model.LogLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, model.LogEntry{Time: time.Now(), Level: level, Message: message})
	if len(s.logs) > logCapacity {
		s.logs = s.logs[len(s.logs)-logCapacity:]
	}
}
