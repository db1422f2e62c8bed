package hastate

import (
	"context"
	"time"

	"github.com/greenhaus/chargesched/config"
	"github.com/greenhaus/chargesched/model"
)

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// BatterySoC reads the battery state-of-charge sensor, in percent.
func (c *Client) BatterySoC(ctx context.Context, bindings config.SensorBindings) (float64, bool, error) {
	return c.floatState(ctx, bindings.BatterySocSensor)
}

// BatteryPower reads the battery power sensor, in watts. Negative means
// charging, matching model.BatteryState's convention.
func (c *Client) BatteryPower(ctx context.Context, bindings config.SensorBindings) (float64, bool, error) {
	return c.floatState(ctx, bindings.BatteryPowerSensor)
}

// BatteryVoltage reads the battery voltage sensor.
func (c *Client) BatteryVoltage(ctx context.Context, bindings config.SensorBindings) (float64, bool, error) {
	return c.floatState(ctx, bindings.BatteryVoltageSensor)
}

// Battery combines the three battery sensors into a single model.BatteryState.
// ok is false if any one of the three readings is unavailable, since a
// partially populated BatteryState would be misleading to a caller.
func (c *Client) Battery(ctx context.Context, bindings config.SensorBindings) (model.BatteryState, bool, error) {
	soc, ok, err := c.BatterySoC(ctx, bindings)
	if err != nil || !ok {
		return model.BatteryState{}, ok, err
	}
	power, ok, err := c.BatteryPower(ctx, bindings)
	if err != nil || !ok {
		return model.BatteryState{}, ok, err
	}
	voltage, ok, err := c.BatteryVoltage(ctx, bindings)
	if err != nil || !ok {
		return model.BatteryState{}, ok, err
	}
	return model.BatteryState{SoC: soc, Power: power, Voltage: voltage}, true, nil
}

// PriceToday reads the current day-ahead price total, in the same currency
// unit Tibber reports (e.g. EUR/kWh).
func (c *Client) PriceToday(ctx context.Context, bindings config.SensorBindings) (float64, bool, error) {
	return c.floatState(ctx, bindings.TibberPriceSensor)
}

// PriceLevel reads the coarse categorical price label attribute, if the
// sensor exposes one.
func (c *Client) PriceLevel(ctx context.Context, bindings config.SensorBindings) (model.PriceLevel, bool, error) {
	entity, ok, err := c.State(ctx, bindings.TibberPriceLevelSensor)
	if err != nil || !ok {
		return "", ok, err
	}
	return model.PriceLevel(entity.State), true, nil
}

// PriceTomorrow reads the "tomorrow" attribute array off the price sensor's
// attribute bag, if published yet (Tibber typically publishes tomorrow's
// prices from early afternoon).
func (c *Client) PriceTomorrow(ctx context.Context, bindings config.SensorBindings) ([]model.PriceSample, bool, error) {
	attrs, ok, err := c.Attributes(ctx, bindings.TibberPriceSensor)
	if err != nil || !ok {
		return nil, ok, err
	}
	samples, ok := parsePriceAttr(attrs, "tomorrow")
	return samples, ok, nil
}

// Prices reads the combined "today"+"tomorrow" hourly price curve off the
// Tibber sensor's attribute bag, in the shape priceopt.FindOptimalChargeEnd
// scans. "tomorrow" is simply absent, not an error, before Tibber publishes
// it -- the curve still returns today's samples alone.
func (c *Client) Prices(ctx context.Context, bindings config.SensorBindings) ([]model.PriceSample, bool, error) {
	attrs, ok, err := c.Attributes(ctx, bindings.TibberPriceSensor)
	if err != nil || !ok {
		return nil, ok, err
	}

	today, ok := parsePriceAttr(attrs, "today")
	if !ok {
		return nil, false, nil
	}
	tomorrow, _ := parsePriceAttr(attrs, "tomorrow")

	return append(today, tomorrow...), true, nil
}

func parsePriceAttr(attrs map[string]any, key string) ([]model.PriceSample, bool) {
	raw, ok := attrs[key]
	if !ok {
		return nil, false
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	samples := make([]model.PriceSample, 0, len(entries))
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		total, _ := entry["total"].(float64)
		level, _ := entry["level"].(string)
		startsAt, _ := entry["startsAt"].(string)
		t, err := parseRFC3339(startsAt)
		if err != nil {
			continue
		}
		samples = append(samples, model.PriceSample{StartsAt: t, Total: total, Level: model.PriceLevel(level)})
	}
	return samples, true
}

// PVForecast combines the two roofs' power-now, remaining-today and
// production-tomorrow sensors by summation, per the forecast model's
// roof-aggregation convention. A missing roof contributes 0 rather than
// failing the whole read.
func (c *Client) PVForecast(ctx context.Context, bindings config.SensorBindings) (model.PVForecast, error) {
	powerNow1, _, err := c.floatStateOrZero(ctx, bindings.PVPowerNowRoof1)
	if err != nil {
		return model.PVForecast{}, err
	}
	powerNow2, _, err := c.floatStateOrZero(ctx, bindings.PVPowerNowRoof2)
	if err != nil {
		return model.PVForecast{}, err
	}
	remaining1, _, err := c.floatStateOrZero(ctx, bindings.PVRemainingTodayRoof1)
	if err != nil {
		return model.PVForecast{}, err
	}
	remaining2, _, err := c.floatStateOrZero(ctx, bindings.PVRemainingTodayRoof2)
	if err != nil {
		return model.PVForecast{}, err
	}
	tomorrow1, _, err := c.floatStateOrZero(ctx, bindings.PVProductionTomorrowRoof1)
	if err != nil {
		return model.PVForecast{}, err
	}
	tomorrow2, _, err := c.floatStateOrZero(ctx, bindings.PVProductionTomorrowRoof2)
	if err != nil {
		return model.PVForecast{}, err
	}

	return model.PVForecast{
		PowerNow:           powerNow1 + powerNow2,
		RemainingToday:     remaining1 + remaining2,
		ProductionTomorrow: tomorrow1 + tomorrow2,
	}, nil
}

// HomeConsumption reads the live home-consumption sensor, in kW.
func (c *Client) HomeConsumption(ctx context.Context, bindings config.SensorBindings) (float64, bool, error) {
	return c.floatState(ctx, bindings.HomeConsumptionSensor)
}

// floatStateOrZero is floatState but treats an unbound or unavailable entity
// as a contributing zero rather than a missing reading, for the roof-sum
// forecast where one roof can legitimately be absent.
func (c *Client) floatStateOrZero(ctx context.Context, entityID string) (float64, bool, error) {
	value, ok, err := c.floatState(ctx, entityID)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	return value, true, nil
}
