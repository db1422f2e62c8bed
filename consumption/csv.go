package consumption

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing the "datum" column: ISO first,
// then the German day.month.year format.
var dateLayouts = []string{"2006-01-02", "02.01.2006"}

// ImportFromCSV is a tolerant parser for the "datum,wochentag,h0..h23"
// format: row-level failures are logged and skipped rather than aborting
// the whole import.
func (s *Store) ImportFromCSV(text string) (ImportResult, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) < 2 {
		return ImportResult{}, fmt.Errorf("no data rows found in CSV")
	}

	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	datumIdx, ok := colIndex["datum"]
	if !ok {
		return ImportResult{}, fmt.Errorf("missing required column 'datum'")
	}

	hourIdx := make([]int, 24)
	for h := 0; h < 24; h++ {
		idx, ok := colIndex[fmt.Sprintf("h%d", h)]
		if !ok {
			return ImportResult{}, fmt.Errorf("missing required column 'h%d'", h)
		}
		hourIdx[h] = idx
	}

	var profiles []DailyProfile

	for rowNum, row := range rows[1:] {
		lineNo := rowNum + 2 // header is line 1

		if datumIdx >= len(row) {
			s.logger.Warn("csv row missing date column, skipping", "line", lineNo)
			continue
		}

		dateStr := strings.TrimSpace(row[datumIdx])
		if dateStr == "" {
			s.logger.Warn("csv row has empty date, skipping", "line", lineNo)
			continue
		}

		date, ok := parseCSVDate(dateStr)
		if !ok {
			s.logger.Error("csv row has unrecognized date format, skipping", "line", lineNo, "date", dateStr)
			continue
		}

		var hours [24]float64
		complete := true
		for h := 0; h < 24; h++ {
			if hourIdx[h] >= len(row) {
				complete = false
				break
			}
			raw := strings.TrimSpace(row[hourIdx[h]])
			raw = strings.ReplaceAll(raw, ",", ".") // German decimal separator
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				s.logger.Error("csv row has invalid number, skipping row", "line", lineNo, "column", fmt.Sprintf("h%d", h), "value", row[hourIdx[h]])
				complete = false
				break
			}
			hours[h] = value
		}
		if !complete {
			continue
		}

		profiles = append(profiles, DailyProfile{Date: date, Hours: hours})
	}

	if len(profiles) == 0 {
		return ImportResult{Success: false}, fmt.Errorf("no valid data found in CSV")
	}

	return s.ImportDetailedHistory(profiles)
}

func parseCSVDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
