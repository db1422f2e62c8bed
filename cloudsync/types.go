package cloudsync

import (
	"time"

	"github.com/google/uuid"
	"github.com/greenhaus/chargesched/model"
)

const (
	consumptionTableName = "consumption_readings"
	decisionTableName    = "control_decisions"
)

// readingMeta is the column set every row shares with Supabase: a generated
// row ID, the device this scheduler instance speaks for, and the reading's
// own timestamp.
type readingMeta struct {
	ID       uuid.UUID `json:"id"`
	DeviceID uuid.UUID `json:"device_id"`
	Time     time.Time `json:"time"`
}

type consumptionRow struct {
	readingMeta
	HourOfDay int     `json:"hour_of_day"`
	KWh       float64 `json:"kwh"`
	IsManual  bool    `json:"is_manual"`
}

type decisionRow struct {
	readingMeta
	WillCharge bool   `json:"will_charge"`
	Mode       string `json:"mode"`
	Reason     string `json:"reason"`
}

func convertConsumption(deviceID uuid.UUID, samples []model.ConsumptionSample) []consumptionRow {
	rows := make([]consumptionRow, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, consumptionRow{
			readingMeta: readingMeta{ID: uuid.New(), DeviceID: deviceID, Time: s.HourTimestamp},
			HourOfDay:   s.HourOfDay,
			KWh:         s.KWh,
			IsManual:    s.IsManual,
		})
	}
	return rows
}

func convertDecision(deviceID uuid.UUID, at time.Time, d model.ControlDecision) decisionRow {
	return decisionRow{
		readingMeta: readingMeta{ID: uuid.New(), DeviceID: deviceID, Time: at},
		WillCharge:  d.WillCharge,
		Mode:        string(d.Mode),
		Reason:      d.Reason,
	}
}

// rowsForUpload mirrors the teacher's convertReadingsForSupabase: a single
// type switch keeping the table name next to the row shape it belongs to.
func rowsForUpload(deviceID uuid.UUID, readings interface{}) (interface{}, string) {
	switch typed := readings.(type) {
	case []model.ConsumptionSample:
		return convertConsumption(deviceID, typed), consumptionTableName
	case decisionUpload:
		return []decisionRow{convertDecision(deviceID, typed.At, typed.Decision)}, decisionTableName
	default:
		return nil, ""
	}
}

// decisionUpload wraps a single control decision so it can flow through the
// same rowsForUpload switch as a batch of consumption samples.
type decisionUpload struct {
	At       time.Time
	Decision model.ControlDecision
}
