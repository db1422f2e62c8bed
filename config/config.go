// Package config loads and persists the scheduler's tunable configuration
// profile: inverter credentials, telemetry entity-id bindings, and the
// planner/control-loop knobs of the data model.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// HomeAssistantConfig carries the connection details hastate.Client uses to
// reach the home-automation instance the sensor bindings below are read
// from.
type HomeAssistantConfig struct {
	Url   string `json:"url"`
	Token string `json:"token"`
}

// SensorBindings names the home-automation entity IDs that hastate.Client
// reads from. All fields are entity IDs, not values.
type SensorBindings struct {
	BatterySocSensor          string `json:"batterySocSensor"`
	BatteryPowerSensor        string `json:"batteryPowerSensor"`
	BatteryVoltageSensor      string `json:"batteryVoltageSensor"`
	TibberPriceSensor         string `json:"tibberPriceSensor"`
	TibberPriceLevelSensor    string `json:"tibberPriceLevelSensor"`
	PVPowerNowRoof1           string `json:"pvPowerNowRoof1"`
	PVPowerNowRoof2           string `json:"pvPowerNowRoof2"`
	PVRemainingTodayRoof1     string `json:"pvRemainingTodayRoof1"`
	PVRemainingTodayRoof2     string `json:"pvRemainingTodayRoof2"`
	PVProductionTomorrowRoof1 string `json:"pvProductionTomorrowRoof1"`
	PVProductionTomorrowRoof2 string `json:"pvProductionTomorrowRoof2"`
	HomeConsumptionSensor     string `json:"homeConsumptionSensor"`
}

// InverterConfig carries the connection details and credentials for the
// inverter auth handshake and the field-bus setpoint write.
type InverterConfig struct {
	IP                string `json:"inverterIp"`
	Port              int    `json:"inverterPort"`
	InstallerPassword string `json:"installerPassword"`
	MasterPassword    string `json:"masterPassword"`
	ModbusHost        string `json:"modbusHost"`
	SetpointRegister  uint16 `json:"setpointRegister"`
}

// CloudSyncConfig gates the optional Supabase mirror.
type CloudSyncConfig struct {
	Enabled            bool   `json:"enabled"`
	Url                string `json:"url"`
	AnonKey            string `json:"anonKey"`
	UserKey            string `json:"userKey"`
	Schema             string `json:"schema"`
	DeviceID           string `json:"deviceId"`
	UploadIntervalSecs int    `json:"uploadIntervalSecs"`
}

// HTTPConfig carries the operator-facing HTTP surface's bind address.
type HTTPConfig struct {
	ListenAddr string `json:"listenAddr"`
}

// ConfigProfile is the full set of tunables described in spec.md §3/§6.
type ConfigProfile struct {
	MaxChargePower             float64 `json:"maxChargePower"`
	AutoSafetySoc              float64 `json:"autoSafetySoc"`
	AutoChargeBelowSoc         float64 `json:"autoChargeBelowSoc"`
	AutoPvThreshold            float64 `json:"autoPvThreshold"`
	ControlIntervalSecs        int     `json:"controlInterval"`
	PriceThreshold1h           float64 `json:"priceThreshold1h"`
	PriceThreshold3h           float64 `json:"priceThreshold3h"`
	ChargeDurationPer10Percent float64 `json:"chargeDurationPer10Percent"`
	LearningDays               int     `json:"learningDays"`
	DefaultHourlyFallback      float64 `json:"defaultHourlyFallback"`
	AverageDailyConsumption    float64 `json:"averageDailyConsumption"`
	AutoOptimizationEnabled    bool    `json:"autoOptimizationEnabled"`

	HomeAssistant HomeAssistantConfig `json:"homeAssistant"`
	Sensors       SensorBindings      `json:"sensors"`
	Inverter      InverterConfig      `json:"inverter"`
	CloudSync     CloudSyncConfig     `json:"cloudSync"`
	HTTP          HTTPConfig          `json:"http"`

	DataDir string `json:"dataDir"`
}

// Default returns a ConfigProfile populated with the same conservative
// defaults the original implementation falls back to when a key is absent.
func Default() ConfigProfile {
	return ConfigProfile{
		MaxChargePower:             3000,
		AutoSafetySoc:              20,
		AutoChargeBelowSoc:         95,
		AutoPvThreshold:            5,
		ControlIntervalSecs:        30,
		PriceThreshold1h:           0.08,
		PriceThreshold3h:           0.08,
		ChargeDurationPer10Percent: 18,
		LearningDays:               28,
		DefaultHourlyFallback:      1.0,
		AutoOptimizationEnabled:    true,
		HTTP:                       HTTPConfig{ListenAddr: ":8080"},
		DataDir:                    "./data",
	}
}

// Read loads a ConfigProfile from a JSON file at path, layering it over
// Default() so that an incomplete config file keeps sane fallbacks for any
// key it omits.
func Read(path string) (ConfigProfile, error) {
	profile := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return ConfigProfile{}, fmt.Errorf("read config file: %w", err)
	}

	if err := json.Unmarshal(content, &profile); err != nil {
		return ConfigProfile{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return profile, nil
}

// Save persists the ConfigProfile to path atomically: it writes to a
// temporary file in the same directory and renames over the target, so a
// crash mid-write never leaves a truncated config file behind.
func Save(path string, profile ConfigProfile) error {
	content, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename config file: %w", err)
	}

	return nil
}
