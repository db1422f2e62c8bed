package hastate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greenhaus/chargesched/config"
)

func newFakeHomeAssistant(t *testing.T, states map[string]stateResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entityID := strings.TrimPrefix(r.URL.Path, "/api/states/")
		state, ok := states[entityID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(state)
	}))
}

func TestStateReturnsFalseForUnavailable(t *testing.T) {
	server := newFakeHomeAssistant(t, map[string]stateResponse{
		"sensor.battery_soc": {EntityID: "sensor.battery_soc", State: "unavailable"},
	})
	defer server.Close()

	client := New(server.URL, "token")
	_, ok, err := client.State(context.Background(), "sensor.battery_soc")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if ok {
		t.Error("expected ok=false for an unavailable entity")
	}
}

func TestStateReturnsFalseWithoutToken(t *testing.T) {
	client := New("http://unused", "")
	_, ok, err := client.State(context.Background(), "sensor.battery_soc")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if ok {
		t.Error("expected ok=false when no token is configured")
	}
}

func TestBatteryCombinesThreeSensors(t *testing.T) {
	server := newFakeHomeAssistant(t, map[string]stateResponse{
		"sensor.soc":     {State: "76.5"},
		"sensor.power":   {State: "-1200"},
		"sensor.voltage": {State: "51.2"},
	})
	defer server.Close()

	client := New(server.URL, "token")
	bindings := config.SensorBindings{
		BatterySocSensor:     "sensor.soc",
		BatteryPowerSensor:   "sensor.power",
		BatteryVoltageSensor: "sensor.voltage",
	}

	battery, ok, err := client.Battery(context.Background(), bindings)
	if err != nil {
		t.Fatalf("Battery: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if battery.SoC != 76.5 || battery.Power != -1200 || battery.Voltage != 51.2 {
		t.Errorf("unexpected battery state: %+v", battery)
	}
}

func TestBatteryFailsIfAnySensorUnavailable(t *testing.T) {
	server := newFakeHomeAssistant(t, map[string]stateResponse{
		"sensor.soc":     {State: "76.5"},
		"sensor.power":   {State: "unknown"},
		"sensor.voltage": {State: "51.2"},
	})
	defer server.Close()

	client := New(server.URL, "token")
	bindings := config.SensorBindings{
		BatterySocSensor:     "sensor.soc",
		BatteryPowerSensor:   "sensor.power",
		BatteryVoltageSensor: "sensor.voltage",
	}

	_, ok, err := client.Battery(context.Background(), bindings)
	if err != nil {
		t.Fatalf("Battery: %v", err)
	}
	if ok {
		t.Error("expected ok=false when one of the three sensors is unavailable")
	}
}

func TestPVForecastSumsBothRoofs(t *testing.T) {
	server := newFakeHomeAssistant(t, map[string]stateResponse{
		"sensor.pv_now_1":       {State: "1.2"},
		"sensor.pv_now_2":       {State: "0.8"},
		"sensor.pv_today_1":     {State: "3.0"},
		"sensor.pv_today_2":     {State: "2.0"},
		"sensor.pv_tomorrow_1":  {State: "10.0"},
		"sensor.pv_tomorrow_2":  {State: "unavailable"},
	})
	defer server.Close()

	client := New(server.URL, "token")
	bindings := config.SensorBindings{
		PVPowerNowRoof1:           "sensor.pv_now_1",
		PVPowerNowRoof2:           "sensor.pv_now_2",
		PVRemainingTodayRoof1:     "sensor.pv_today_1",
		PVRemainingTodayRoof2:     "sensor.pv_today_2",
		PVProductionTomorrowRoof1: "sensor.pv_tomorrow_1",
		PVProductionTomorrowRoof2: "sensor.pv_tomorrow_2",
	}

	forecast, err := client.PVForecast(context.Background(), bindings)
	if err != nil {
		t.Fatalf("PVForecast: %v", err)
	}
	if forecast.PowerNow != 2.0 {
		t.Errorf("PowerNow got %v, expected 2.0", forecast.PowerNow)
	}
	if forecast.RemainingToday != 5.0 {
		t.Errorf("RemainingToday got %v, expected 5.0", forecast.RemainingToday)
	}
	if forecast.ProductionTomorrow != 10.0 {
		t.Errorf("ProductionTomorrow got %v, expected 10.0 (unavailable roof contributes 0)", forecast.ProductionTomorrow)
	}
}

func TestPricesConcatenatesTodayAndTomorrow(t *testing.T) {
	server := newFakeHomeAssistant(t, map[string]stateResponse{
		"sensor.tibber_prices": {
			State: "0.25",
			Attributes: map[string]any{
				"today": []any{
					map[string]any{"total": 0.20, "level": "NORMAL", "startsAt": "2024-04-01T00:00:00Z"},
				},
				"tomorrow": []any{
					map[string]any{"total": 0.30, "level": "EXPENSIVE", "startsAt": "2024-04-02T00:00:00Z"},
				},
			},
		},
	})
	defer server.Close()

	client := New(server.URL, "token")
	bindings := config.SensorBindings{TibberPriceSensor: "sensor.tibber_prices"}

	prices, ok, err := client.Prices(context.Background(), bindings)
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 combined samples, got %d", len(prices))
	}
	if prices[0].Total != 0.20 || prices[1].Total != 0.30 {
		t.Errorf("unexpected combined totals: %+v", prices)
	}
}

func TestPricesMissingTodayIsUnavailable(t *testing.T) {
	server := newFakeHomeAssistant(t, map[string]stateResponse{
		"sensor.tibber_prices": {State: "0.25", Attributes: map[string]any{}},
	})
	defer server.Close()

	client := New(server.URL, "token")
	bindings := config.SensorBindings{TibberPriceSensor: "sensor.tibber_prices"}

	_, ok, err := client.Prices(context.Background(), bindings)
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if ok {
		t.Error("expected ok=false when the sensor has no 'today' attribute yet")
	}
}

func TestHistoryParsesPeriodResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/history/period/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`[[
			{"state": "1.5", "last_changed": "2024-04-01T10:00:00Z"},
			{"state": "unavailable", "last_changed": "2024-04-01T11:00:00Z"},
			{"state": "2.5", "last_changed": "2024-04-01T12:00:00Z"}
		]]`))
	}))
	defer server.Close()

	client := New(server.URL, "token")
	points, err := client.History(context.Background(), "sensor.home_consumption",
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points (unavailable sample skipped), got %d", len(points))
	}
	if points[0].Value != 1.5 || points[1].Value != 2.5 {
		t.Errorf("unexpected point values: %+v", points)
	}
}
