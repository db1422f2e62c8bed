// Package consumption persists per-hour household consumption samples in a
// local embedded relational store, and serves the averages and projections
// the planner and the status explainer rely on.
package consumption

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/greenhaus/chargesched/model"
	"github.com/greenhaus/chargesched/timeutils"
)

const (
	minKWh = 0.0
	maxKWh = 50.0
	// fillHourlyProfile is used to fill any hour of HourlyProfile that has
	// no recorded samples at all, matching the original's flat 0.5 kWh fill.
	fillHourlyProfile = 0.5
)

// Store is the single-writer, embedded consumption database.
type Store struct {
	db                      *gorm.DB
	learningDays            int
	defaultHourlyFallback   float64
	averageDailyConsumption float64
	logger                  *slog.Logger
}

// New opens (creating if necessary) the sqlite-backed consumption database
// at path and migrates its schema.
func New(path string, learningDays int, defaultHourlyFallback, averageDailyConsumption float64) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create consumption db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open consumption database: %w", err)
	}

	if err := db.AutoMigrate(&hourlyConsumption{}); err != nil {
		return nil, fmt.Errorf("migrate consumption database: %w", err)
	}

	if learningDays <= 0 {
		learningDays = 28
	}

	return &Store{
		db:                      db,
		learningDays:            learningDays,
		defaultHourlyFallback:   defaultHourlyFallback,
		averageDailyConsumption: averageDailyConsumption,
		logger:                  slog.Default(),
	}, nil
}

// RecordConsumption stores the consumption reading for the hour containing
// ts, overwriting any existing sample for that hour (manual or learned).
// Values outside [0,50] are rejected as sensor errors. Retention purge runs
// afterwards.
func (s *Store) RecordConsumption(ts time.Time, kWh float64) error {
	if kWh < minKWh {
		s.logger.Warn("negative consumption value, skipping", "kwh", kWh, "ts", ts)
		return fmt.Errorf("consumption %.2f kWh below minimum %.0f", kWh, minKWh)
	}
	if kWh > maxKWh {
		s.logger.Warn("unrealistically high consumption value, skipping", "kwh", kWh, "ts", ts)
		return fmt.Errorf("consumption %.2f kWh above maximum %.0f", kWh, maxKWh)
	}

	hourTs := timeutils.RoundToHour(ts)

	row := hourlyConsumption{
		Timestamp:      hourTs,
		Hour:           hourTs.Hour(),
		ConsumptionKwh: kWh,
		IsManual:       false,
		CreatedAt:      time.Now(),
	}

	result := s.db.Save(&row)
	if result.Error != nil {
		return fmt.Errorf("store consumption sample: %w", result.Error)
	}

	s.purgeOldData()
	return nil
}

// AddManualProfile seeds learningDays*24 hourly rows with isManual=true,
// spanning the retention window ending now. An hour absent from profile
// falls back to 0.2 kWh, matching the original's baseline-seeding default.
// A manual row is never written over an hour that already holds a learned
// (non-manual) sample, per the "manual never overwrites learned" invariant.
func (s *Store) AddManualProfile(profile map[int]float64) error {
	now := time.Now()
	startDate := now.AddDate(0, 0, -s.learningDays)

	inserted := 0
	for day := 0; day < s.learningDays; day++ {
		date := startDate.AddDate(0, 0, day)
		for hour := 0; hour < 24; hour++ {
			kWh, ok := profile[hour]
			if !ok {
				s.logger.Warn("hour missing in manual profile, using 0.2 kWh", "hour", hour)
				kWh = 0.2
			}

			hourTs := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())

			if err := s.insertManualIfNotLearned(hourTs, hour, kWh); err != nil {
				return fmt.Errorf("insert manual profile hour %d on %s: %w", hour, date.Format("2006-01-02"), err)
			}
			inserted++
		}
	}

	s.logger.Info("added manual baseline profile", "hours", inserted)
	return nil
}

// ImportDetailedHistory imports daily profiles of 24 hourly values each,
// clamping out-of-range values with a warning rather than rejecting the row.
func (s *Store) ImportDetailedHistory(days []DailyProfile) (ImportResult, error) {
	if len(days) > s.learningDays {
		s.logger.Warn("more days provided than the learning period retains",
			"provided", len(days), "learningDays", s.learningDays)
	}

	result := ImportResult{}

	for _, day := range days {
		for hour := 0; hour < 24; hour++ {
			kWh := day.Hours[hour]

			if kWh < minKWh {
				s.logger.Warn("negative value in import, clamping to 0", "date", day.Date, "hour", hour, "kwh", kWh)
				kWh = 0
			} else if kWh > maxKWh {
				s.logger.Warn("unrealistic value in import, capping at 50", "date", day.Date, "hour", hour, "kwh", kWh)
				kWh = maxKWh
			}

			hourTs := time.Date(day.Date.Year(), day.Date.Month(), day.Date.Day(), hour, 0, 0, 0, day.Date.Location())

			if err := s.insertManualIfNotLearned(hourTs, hour, kWh); err != nil {
				s.logger.Error("failed to import hour", "date", day.Date, "hour", hour, "error", err)
				result.SkippedDays++
				continue
			}
			result.ImportedHours++
		}
	}

	result.Success = result.SkippedDays == 0

	s.purgeOldData()
	return result, nil
}

// insertManualIfNotLearned writes a manual sample for hourTs unless a
// non-manual (learned) row already occupies that hour.
func (s *Store) insertManualIfNotLearned(hourTs time.Time, hour int, kWh float64) error {
	var existing hourlyConsumption
	err := s.db.Where("timestamp = ?", hourTs).First(&existing).Error
	if err == nil && !existing.IsManual {
		return nil // learned data takes precedence, never overwritten by a manual seed
	}

	row := hourlyConsumption{
		Timestamp:      hourTs,
		Hour:           hour,
		ConsumptionKwh: kWh,
		IsManual:       true,
		CreatedAt:      time.Now(),
	}
	return s.db.Save(&row).Error
}

// RecentSince returns every stored sample timestamped at or after since,
// ordered oldest first, for callers that mirror fresh rows elsewhere.
func (s *Store) RecentSince(since time.Time) ([]model.ConsumptionSample, error) {
	var rows []hourlyConsumption
	err := s.db.Where("timestamp >= ?", since).Order("timestamp asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent consumption: %w", err)
	}

	samples := make([]model.ConsumptionSample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, model.ConsumptionSample{
			HourTimestamp: row.Timestamp,
			HourOfDay:     row.Hour,
			KWh:           row.ConsumptionKwh,
			IsManual:      row.IsManual,
		})
	}
	return samples, nil
}

// AverageAtHour returns the average kWh across all stored samples with the
// given hour-of-day, falling back through the chain: configured
// defaultHourlyFallback, then averageDailyConsumption/24, then 1.0 kWh.
func (s *Store) AverageAtHour(hour int) float64 {
	var avg *float64
	err := s.db.Model(&hourlyConsumption{}).
		Where("hour = ?", hour).
		Select("AVG(consumption_kwh)").
		Scan(&avg).Error

	if err == nil && avg != nil {
		return *avg
	}

	return s.fallback()
}

func (s *Store) fallback() float64 {
	if s.defaultHourlyFallback > 0 {
		return s.defaultHourlyFallback
	}
	if s.averageDailyConsumption > 0 {
		return s.averageDailyConsumption / 24
	}
	return 1.0
}

// HourlyProfile returns the full 24-hour average consumption profile. Hours
// with no samples at all are filled with 0.5 kWh.
func (s *Store) HourlyProfile() map[int]float64 {
	type row struct {
		Hour int
		Avg  float64
	}
	var rows []row

	s.db.Model(&hourlyConsumption{}).
		Select("hour, AVG(consumption_kwh) as avg").
		Group("hour").
		Scan(&rows)

	profile := make(map[int]float64, 24)
	for _, r := range rows {
		profile[r.Hour] = r.Avg
	}
	for hour := 0; hour < 24; hour++ {
		if _, ok := profile[hour]; !ok {
			profile[hour] = fillHourlyProfile
		}
	}
	return profile
}

// PredictConsumptionUntil integrates the hourly average from now (a
// fractional current hour) over successive hours modulo 24 until reaching
// targetHour, exclusive.
func (s *Store) PredictConsumptionUntil(now time.Time, targetHour int) float64 {
	currentHour := now.Hour()
	remainingFraction := float64(60-now.Minute()) / 60

	total := s.AverageAtHour(currentHour) * remainingFraction

	for hour := (currentHour + 1) % 24; hour != targetHour; hour = (hour + 1) % 24 {
		total += s.AverageAtHour(hour)
	}

	return total
}

// Statistics returns totals, the manual/learned split, the timestamp range,
// and the learning-progress percentage (learned/total).
func (s *Store) Statistics() Statistics {
	var total, manual int64
	s.db.Model(&hourlyConsumption{}).Count(&total)
	s.db.Model(&hourlyConsumption{}).Where("is_manual = ?", true).Count(&manual)
	learned := total - manual

	stats := Statistics{
		TotalRecords:   int(total),
		ManualRecords:  int(manual),
		LearnedRecords: int(learned),
	}

	if total > 0 {
		stats.LearningProgress = float64(learned) / float64(total) * 100
	}

	var oldest, newest hourlyConsumption
	if err := s.db.Order("timestamp asc").First(&oldest).Error; err == nil {
		t := oldest.Timestamp
		stats.OldestRecord = &t
	}
	if err := s.db.Order("timestamp desc").First(&newest).Error; err == nil {
		t := newest.Timestamp
		stats.NewestRecord = &t
	}

	return stats
}

// ClearManualData deletes all manually-imported records, keeping learned
// (recorded) samples. Returns the number of rows deleted.
func (s *Store) ClearManualData() (int64, error) {
	result := s.db.Where("is_manual = ?", true).Delete(&hourlyConsumption{})
	return result.RowsAffected, result.Error
}

// ClearAllData deletes every consumption record, manual and learned.
func (s *Store) ClearAllData() (int64, error) {
	result := s.db.Where("1 = 1").Delete(&hourlyConsumption{})
	return result.RowsAffected, result.Error
}

func (s *Store) purgeOldData() {
	cutoff := time.Now().AddDate(0, 0, -s.learningDays)
	result := s.db.Where("timestamp < ?", cutoff).Delete(&hourlyConsumption{})
	if result.Error != nil {
		s.logger.Error("failed to purge old consumption data", "error", result.Error)
	}
}

// HistorySource is satisfied by hastate.Client; it supplies raw telemetry
// history for ImportFromHistory to bootstrap the learned profile from.
type HistorySource interface {
	History(ctx context.Context, entityID string, start, end time.Time) ([]HistoryPoint, error)
}

// ImportFromHistory supplements the dropped "import from Home Assistant
// history" feature of the original: it groups raw samples by date and hour,
// averages each bucket, and skips any day with under 12 hours of data before
// handing the result to ImportDetailedHistory.
func (s *Store) ImportFromHistory(ctx context.Context, source HistorySource, entityID string, days int) (ImportResult, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	points, err := source.History(ctx, entityID, start, end)
	if err != nil {
		return ImportResult{}, fmt.Errorf("fetch history: %w", err)
	}

	type bucketKey struct {
		date string
		hour int
	}
	buckets := make(map[bucketKey][]float64)

	for _, point := range points {
		if point.Value < minKWh || point.Value > maxKWh {
			continue
		}
		key := bucketKey{date: point.Time.Format("2006-01-02"), hour: point.Time.Hour()}
		buckets[key] = append(buckets[key], point.Value)
	}

	byDate := make(map[string]map[int]float64)
	for key, values := range buckets {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		if byDate[key.date] == nil {
			byDate[key.date] = make(map[int]float64)
		}
		byDate[key.date][key.hour] = sum / float64(len(values))
	}

	var profiles []DailyProfile
	for dateStr, hours := range byDate {
		if len(hours) < 12 {
			s.logger.Warn("skipping day with too little history data", "date", dateStr, "hours", len(hours))
			continue
		}

		avgOfKnown := 0.0
		for _, v := range hours {
			avgOfKnown += v
		}
		avgOfKnown /= float64(len(hours))

		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		profile := DailyProfile{Date: date}
		for hour := 0; hour < 24; hour++ {
			if v, ok := hours[hour]; ok {
				profile.Hours[hour] = v
			} else {
				profile.Hours[hour] = avgOfKnown
			}
		}
		profiles = append(profiles, profile)
	}

	if len(profiles) == 0 {
		return ImportResult{}, fmt.Errorf("no complete days found in history data")
	}

	return s.ImportDetailedHistory(profiles)
}
