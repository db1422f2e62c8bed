package consumption

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func buildCSV(dateStr string, hours [24]float64) string {
	var b strings.Builder
	b.WriteString("datum,wochentag")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",h%d", h)
	}
	b.WriteString("\n")
	b.WriteString(dateStr + ",Montag")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",%.2f", hours[h])
	}
	b.WriteString("\n")
	return b.String()
}

func TestImportFromCSVISODate(t *testing.T) {
	store := newTestStore(t)

	var hours [24]float64
	for h := 0; h < 24; h++ {
		hours[h] = float64(h) * 0.1
	}

	result, err := store.ImportFromCSV(buildCSV("2024-10-07", hours))
	if err != nil {
		t.Fatalf("ImportFromCSV: %v", err)
	}
	if !result.Success || result.ImportedHours != 24 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestImportFromCSVGermanDateAndDecimal(t *testing.T) {
	store := newTestStore(t)

	// fill remaining hour columns with zeros so the row is complete
	var b strings.Builder
	b.WriteString("datum,wochentag")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",h%d", h)
	}
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("02.01.2006")
	b.WriteString("\n" + yesterday + ",Montag,\"1,5\",\"2,0\"")
	for h := 2; h < 24; h++ {
		b.WriteString(",0")
	}
	b.WriteString("\n")

	result, err := store.ImportFromCSV(b.String())
	if err != nil {
		t.Fatalf("ImportFromCSV: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	if got := store.AverageAtHour(0); got != 1.5 {
		t.Errorf("hour 0 got %v, expected 1.5", got)
	}
	if got := store.AverageAtHour(1); got != 2.0 {
		t.Errorf("hour 1 got %v, expected 2.0", got)
	}
}

func TestImportFromCSVSkipsBadRowsButKeepsGoodOnes(t *testing.T) {
	store := newTestStore(t)

	var goodHours [24]float64
	for h := 0; h < 24; h++ {
		goodHours[h] = 1.0
	}

	var b strings.Builder
	b.WriteString("datum,wochentag")
	for h := 0; h < 24; h++ {
		fmt.Fprintf(&b, ",h%d", h)
	}
	b.WriteString("\n")
	b.WriteString("not-a-date,Montag")
	for h := 0; h < 24; h++ {
		b.WriteString(",1.0")
	}
	b.WriteString("\n")
	b.WriteString(buildCSV("2024-10-08", goodHours))

	result, err := store.ImportFromCSV(b.String())
	if err != nil {
		t.Fatalf("ImportFromCSV: %v", err)
	}
	if result.ImportedHours != 24 {
		t.Errorf("expected only the valid day's 24 hours imported, got %d", result.ImportedHours)
	}
}

func TestImportFromCSVMissingDataError(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ImportFromCSV("datum,wochentag,h0\n")
	if err == nil {
		t.Error("expected error for CSV missing required hour columns")
	}
}
