// Package model holds the data types shared across the scheduler: price
// samples, forecasts, battery readings, plans and the decisions derived from
// them. Types here are plain data carriers; behaviour lives in the packages
// that produce or consume them.
package model

import "time"

// PriceLevel is a coarse categorical label for a price point. It is carried
// on each PriceSample; the optimizer relies solely on numerical prices and
// the status explainer does not read it.
type PriceLevel string

const (
	PriceVeryCheap     PriceLevel = "VERY_CHEAP"
	PriceCheap         PriceLevel = "CHEAP"
	PriceNormal        PriceLevel = "NORMAL"
	PriceExpensive     PriceLevel = "EXPENSIVE"
	PriceVeryExpensive PriceLevel = "VERY_EXPENSIVE"
)

// PriceSample is one hour of the day-ahead price curve.
type PriceSample struct {
	StartsAt time.Time
	Total    float64
	Level    PriceLevel
}

// PVForecast is the per-roof aggregate photovoltaic forecast, combined by
// summation across roofs. All fields are >= 0; a missing roof contributes 0.
type PVForecast struct {
	PowerNow           float64 // kW
	RemainingToday     float64 // kWh
	ProductionTomorrow float64 // kWh
}

// BatteryState is the last telemetry-derived reading of the battery. It is
// never written by the control loop.
type BatteryState struct {
	SoC     float64 // percent, 0..100
	Power   float64 // W, negative = charging
	Voltage float64 // V
}

// ChargingPlan is the planner's advisory output. It is either fully set or
// fully absent -- never partially populated.
type ChargingPlan struct {
	PlannedStart   time.Time
	PlannedEnd     time.Time
	TargetSoC      float64
	LastCalculated time.Time
	Valid          bool
}

// ControlMode is the inverter's control mode as driven by the control loop.
type ControlMode string

const (
	ModeInternal       ControlMode = "Internal"
	ModeManualCharging ControlMode = "ManualCharging"
	ModeAutoCharging   ControlMode = "AutoCharging"
)

// ControlDecision is the per-tick output of rule evaluation. It is derived,
// never stored.
type ControlDecision struct {
	WillCharge bool
	Mode       ControlMode
	Reason     string
}

// ConsumptionSample is one hourly household-consumption record.
type ConsumptionSample struct {
	HourTimestamp time.Time // primary key, rounded to the hour
	HourOfDay     int       // 0..23
	KWh           float64   // 0..50
	IsManual      bool
}

// LogLevel is the severity of a LogEntry.
type LogLevel string

const (
	LogInfo    LogLevel = "INFO"
	LogWarning LogLevel = "WARNING"
	LogError   LogLevel = "ERROR"
)

// LogEntry is one record in the operator-facing log ring buffer.
type LogEntry struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// EntityState is a single telemetry read: the raw state string plus its
// attribute bag. "unknown"/"unavailable" states carry no usable data -- see
// hastate.Client, which never collapses these to a numeric zero.
type EntityState struct {
	State      string
	Attributes map[string]any
}

// StatusCondition is one named branch of the status explainer's rule
// evaluation.
type StatusCondition struct {
	Fulfilled bool
	Label     string
	Priority  int
}

// StatusReport is the deterministic, structured output of the status
// explainer.
type StatusReport struct {
	Explanation   string
	WillCharge    bool
	Conditions    map[string]StatusCondition
	CurrentSoC    float64
	TargetSoC     float64
	PVRemaining   float64
	PlannedStart  *string // "HH:MM" or nil
	PlannedEnd    *string // "HH:MM" or nil
}
