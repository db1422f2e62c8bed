package consumption

import "time"

// hourlyConsumption is the gorm-mapped row backing the hourly_consumption
// table: one record per hour, keyed by its (already hour-rounded) timestamp.
type hourlyConsumption struct {
	Timestamp      time.Time `gorm:"primaryKey"`
	Hour           int       `gorm:"not null"`
	ConsumptionKwh float64   `gorm:"not null"`
	IsManual       bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (hourlyConsumption) TableName() string {
	return "hourly_consumption"
}

// DailyProfile is one day of 24 hourly consumption values, as supplied to
// ImportDetailedHistory or parsed from a CSV upload.
type DailyProfile struct {
	Date  time.Time
	Hours [24]float64
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	ImportedHours int
	SkippedDays   int
	Success       bool
}

// Statistics summarizes the learned dataset.
type Statistics struct {
	TotalRecords     int
	ManualRecords    int
	LearnedRecords   int
	OldestRecord     *time.Time
	NewestRecord     *time.Time
	LearningProgress float64 // percent of records that are learned (not manual)
}

// HistoryPoint is one raw telemetry sample as returned by a HistorySource,
// used by ImportFromHistory to bootstrap the learned profile from an
// external state store's history.
type HistoryPoint struct {
	Time  time.Time
	Value float64
}
