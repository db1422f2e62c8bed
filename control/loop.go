package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/greenhaus/chargesched/config"
	"github.com/greenhaus/chargesched/consumption"
	"github.com/greenhaus/chargesched/hastate"
	"github.com/greenhaus/chargesched/inverterauth"
	"github.com/greenhaus/chargesched/model"
	"github.com/greenhaus/chargesched/planner"
	"github.com/greenhaus/chargesched/priceopt"
	"github.com/greenhaus/chargesched/setpoint"
	"github.com/greenhaus/chargesched/timeutils"
)

// planRefreshInterval bounds how stale the advisory plan may get before the
// loop recomputes it from a fresh price curve, per spec.md §4.3 step 2.
const planRefreshInterval = 5 * time.Minute

// telemetryTimeout bounds every outbound telemetry/auth/setpoint call this
// loop makes in a single tick.
const telemetryTimeout = 8 * time.Second

// maxConsecutiveSafetyFailures is how many ticks in a row the inverter
// session/setpoint write may fail before the loop forces the mode back to
// Internal, per spec.md §4.3's "Any -> Internal: safety failure" transition.
const maxConsecutiveSafetyFailures = 3

// Loop owns AppState and drives the inverter's mode each tick. It is the
// sole writer of plan and mode; operator-initiated mode changes go through
// its own thread-safe methods (StartCharging/StopCharging/ToggleAutomation),
// never direct field mutation, matching spec.md §5's single-writer rule.
type Loop struct {
	telemetry *hastate.Client
	inverter  *inverterauth.Client
	setpoint  *setpoint.Writer
	store     *consumption.Store
	bindings  config.SensorBindings

	state AppState

	cfgMu sync.RWMutex
	cfg   config.ConfigProfile

	lastConsumptionHour time.Time

	consecutiveFailures int

	logger *slog.Logger
}

// New assembles a Loop from its already-constructed collaborators and the
// tunables in cfg.
func New(telemetry *hastate.Client, inverter *inverterauth.Client, writer *setpoint.Writer, store *consumption.Store, cfg config.ConfigProfile) *Loop {
	l := &Loop{
		telemetry: telemetry,
		inverter:  inverter,
		setpoint:  writer,
		store:     store,
		bindings:  cfg.Sensors,
		cfg:       cfg,
		logger:    slog.Default().With("component", "control"),
	}
	l.state.setMode(model.ModeInternal)
	return l
}

func (l *Loop) currentConfig() config.ConfigProfile {
	l.cfgMu.RLock()
	defer l.cfgMu.RUnlock()
	return l.cfg
}

// Snapshot returns a read-only copy of the loop's shared state, for the HTTP
// surface and the status explainer.
func (l *Loop) Snapshot() Snapshot {
	return l.state.snapshot()
}

// ToggleAutomation enables or disables rule-driven mode transitions
// entirely. While disabled, the loop still refreshes telemetry and the
// advisory plan but never drives AutoCharging.
func (l *Loop) ToggleAutomation(enabled bool) {
	l.cfgMu.Lock()
	l.cfg.AutoOptimizationEnabled = enabled
	l.cfgMu.Unlock()
	l.state.log(model.LogInfo, "automation toggled")
}

// Run starts the periodic control loop, ticking every controlInterval until
// ctx is cancelled. On cancellation it issues a best-effort safe-state write
// before returning, per spec.md §5's cancellation guidance.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(l.currentConfig().ControlIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case now := <-ticker.C:
			l.tick(ctx, now)
		}
	}
}

// tick runs the exact five-step sequence of spec.md §4.3. Every step absorbs
// its own failures as "no update" rather than aborting the remaining steps:
// a slow or failing telemetry source must not stall rule evaluation.
func (l *Loop) tick(ctx context.Context, now time.Time) {
	cfg := l.currentConfig()

	l.refreshBattery(ctx, cfg)
	l.maybeRefreshPlan(ctx, cfg, now)
	l.maybeSampleConsumption(ctx, cfg, now)

	snap := l.state.snapshot()
	willCharge, reason := ShouldCharge(
		snap.Plan, snap.Battery.SoC, cfg.AutoSafetySoc, cfg.AutoChargeBelowSoc,
		snap.Forecast.RemainingToday, cfg.AutoPvThreshold, now,
	)

	l.drive(cfg, willCharge, reason)
}

func (l *Loop) refreshBattery(ctx context.Context, cfg config.ConfigProfile) {
	ctx, cancel := context.WithTimeout(ctx, telemetryTimeout)
	defer cancel()

	battery, ok, err := l.telemetry.Battery(ctx, l.bindings)
	if err != nil {
		l.logger.Warn("battery telemetry read failed", "error", err)
		return
	}
	if !ok {
		l.logger.Debug("battery telemetry unavailable this tick")
		return
	}
	l.state.setBattery(battery, time.Now())

	forecast, err := l.telemetry.PVForecast(ctx, l.bindings)
	if err != nil {
		l.logger.Warn("pv forecast read failed", "error", err)
		return
	}
	l.state.setForecast(forecast)
}

func (l *Loop) maybeRefreshPlan(ctx context.Context, cfg config.ConfigProfile, now time.Time) {
	snap := l.state.snapshot()
	if !timeutils.IsStale(snap.Plan.LastCalculated, now, planRefreshInterval) {
		return
	}
	l.refreshPlan(ctx, cfg, now)
}

// RecalculatePlan forces an immediate plan recompute regardless of
// staleness, for the operator-initiated "recalculate_plan" action.
func (l *Loop) RecalculatePlan(ctx context.Context) {
	l.refreshPlan(ctx, l.currentConfig(), time.Now())
}

func (l *Loop) refreshPlan(ctx context.Context, cfg config.ConfigProfile, now time.Time) {
	snap := l.state.snapshot()

	ctx, cancel := context.WithTimeout(ctx, telemetryTimeout)
	defer cancel()

	prices, ok, err := l.telemetry.Prices(ctx, l.bindings)
	if err != nil || !ok {
		if err != nil {
			l.logger.Warn("price curve read failed, keeping prior plan", "error", err)
		}
		snap.Plan.LastCalculated = now
		l.state.setPlan(snap.Plan)
		return
	}
	l.state.setPrices(prices)

	chargeEnd, found := priceopt.FindOptimalChargeEnd(prices, now, cfg.PriceThreshold1h, cfg.PriceThreshold3h)
	if !found {
		l.logger.Debug("no optimal charge end found this cycle, keeping prior plan")
		snap.Plan.LastCalculated = now
		l.state.setPlan(snap.Plan)
		return
	}

	plan := planner.Plan(chargeEnd, snap.Battery.SoC, cfg.AutoChargeBelowSoc, cfg.ChargeDurationPer10Percent)
	l.state.setPlan(plan)
}

func (l *Loop) maybeSampleConsumption(ctx context.Context, cfg config.ConfigProfile, now time.Time) {
	hour := timeutils.RoundToHour(now)
	if hour.Equal(l.lastConsumptionHour) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, telemetryTimeout)
	defer cancel()

	kWh, ok, err := l.telemetry.HomeConsumption(ctx, l.bindings)
	if err != nil {
		l.logger.Warn("consumption telemetry read failed", "error", err)
		return
	}
	if !ok {
		return
	}

	if err := l.store.RecordConsumption(now, kWh); err != nil {
		l.logger.Warn("record consumption failed", "error", err)
		return
	}
	l.lastConsumptionHour = hour
}

// drive moves the state machine toward willCharge, honoring manual
// isolation (a manual charge is never interrupted by rule evaluation) and
// the enable-before-setpoint / setpoint-zero-before-disable ordering of
// spec.md §4.3 step 5.
func (l *Loop) drive(cfg config.ConfigProfile, willCharge bool, reason string) {
	mode := l.state.currentMode()

	if mode == model.ModeManualCharging {
		// Manual and auto never interleave: rule evaluation still ran above
		// to keep the plan and explainer current, but it never drives a
		// manual session.
		return
	}

	if !cfg.AutoOptimizationEnabled {
		return
	}

	switch mode {
	case model.ModeInternal:
		if willCharge {
			l.enterCharging(reason, -absFloat(cfg.MaxChargePower))
		}
	case model.ModeAutoCharging:
		if !willCharge {
			l.exitCharging(reason)
		}
	}
}

// enterCharging enables external control before issuing a nonzero setpoint,
// the order spec.md §4.3 step 5 requires: a setpoint has no effect until
// external control is enabled.
func (l *Loop) enterCharging(reason string, watts float64) {
	if err := l.inverter.SetExternalControl(true); err != nil {
		l.logger.Error("enable external control failed", "error", err)
		l.recordFailure()
		return
	}

	if !l.setpoint.WriteBatteryPower(int(watts)) {
		l.logger.Error("write battery power failed entering auto charging")
		l.recordFailure()
		return
	}

	l.consecutiveFailures = 0
	l.state.setMode(model.ModeAutoCharging)
	l.state.log(model.LogInfo, "auto charging started: "+reason)
}

// exitCharging clears the setpoint before returning control to the
// inverter's own logic, the reverse ordering enterCharging uses.
func (l *Loop) exitCharging(reason string) {
	if !l.setpoint.WriteBatteryPower(0) {
		l.logger.Error("clear battery power setpoint failed exiting auto charging")
		l.recordFailure()
		return
	}

	if err := l.inverter.SetExternalControl(false); err != nil {
		l.logger.Error("disable external control failed", "error", err)
		l.recordFailure()
		return
	}

	l.consecutiveFailures = 0
	l.state.setMode(model.ModeInternal)
	l.state.log(model.LogInfo, "auto charging stopped: "+reason)
}

// StartCharging is the operator's manual override: it forces the inverter
// into external control at the given power regardless of rule evaluation.
func (l *Loop) StartCharging(watts int) bool {
	if l.state.currentMode() == model.ModeAutoCharging {
		l.exitCharging("manual override")
	}

	if err := l.inverter.SetExternalControl(true); err != nil {
		l.logger.Error("enable external control failed for manual charge", "error", err)
		return false
	}
	if !l.setpoint.WriteBatteryPower(watts) {
		l.logger.Error("write battery power failed for manual charge")
		return false
	}

	l.state.setMode(model.ModeManualCharging)
	l.state.log(model.LogInfo, "manual charging started")
	return true
}

// StopCharging ends an operator-initiated manual charge, returning the
// inverter to Internal mode.
func (l *Loop) StopCharging() bool {
	if l.state.currentMode() != model.ModeManualCharging {
		return true
	}

	if !l.setpoint.WriteBatteryPower(0) {
		l.logger.Error("clear battery power setpoint failed stopping manual charge")
		return false
	}
	if err := l.inverter.SetExternalControl(false); err != nil {
		l.logger.Error("disable external control failed stopping manual charge", "error", err)
		return false
	}

	l.state.setMode(model.ModeInternal)
	l.state.log(model.LogInfo, "manual charging stopped")
	return true
}

// recordFailure counts consecutive inverter-side failures and forces the
// mode back to Internal after maxConsecutiveSafetyFailures, per spec.md
// §4.3's "Any -> Internal: safety failure" transition.
func (l *Loop) recordFailure() {
	l.consecutiveFailures++
	if l.consecutiveFailures < maxConsecutiveSafetyFailures {
		return
	}
	l.consecutiveFailures = 0
	l.state.setMode(model.ModeInternal)
	l.state.log(model.LogError, "forced back to internal mode after repeated inverter failures")
}

// shutdown issues a best-effort safe-state write on context cancellation:
// clear the setpoint and hand control back to the inverter, per spec.md §5.
func (l *Loop) shutdown() {
	if l.state.currentMode() == model.ModeInternal {
		return
	}
	l.setpoint.WriteBatteryPower(0)
	if err := l.inverter.SetExternalControl(false); err != nil {
		l.logger.Warn("shutdown: disable external control failed", "error", err)
	}
	l.state.setMode(model.ModeInternal)
	l.state.log(model.LogWarning, "shutdown: forced back to internal mode")
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
