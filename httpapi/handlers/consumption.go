package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/consumption"
	"github.com/greenhaus/chargesched/httpapi/models"
)

// ConsumptionHandler serves the learned consumption profile and accepts
// manual corrections: a flat hour->kWh profile or a bulk CSV history
// import.
type ConsumptionHandler struct {
	store *consumption.Store
}

func NewConsumptionHandler(store *consumption.Store) *ConsumptionHandler {
	return &ConsumptionHandler{store: store}
}

// GetLearning handles GET /api/consumption_learning.
func (h *ConsumptionHandler) GetLearning(c *gin.Context) {
	stats := h.store.Statistics()
	c.JSON(http.StatusOK, gin.H{
		"statistics": stats,
		"profile":    h.store.HourlyProfile(),
	})
}

// GetOrPostConsumptionData handles GET/POST /api/consumption_data.
func (h *ConsumptionHandler) GetOrPostConsumptionData(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		c.JSON(http.StatusOK, gin.H{"profile": h.store.HourlyProfile()})
		return
	}

	var req models.ConsumptionDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	profile := make(map[int]float64, len(req.Profile))
	for hourStr, kwh := range req.Profile {
		hour, err := strconv.Atoi(hourStr)
		if err != nil || hour < 0 || hour > 23 {
			writeError(c, http.StatusBadRequest, "INVALID_HOUR", "hour keys must be 0..23")
			return
		}
		profile[hour] = kwh
	}

	if err := h.store.AddManualProfile(profile); err != nil {
		writeError(c, http.StatusInternalServerError, "STORE_WRITE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PostImportCSV handles POST /api/consumption_import_csv. Each row is
// date,h0,h1,...,h23 -- 25 columns, one day per row.
func (h *ConsumptionHandler) PostImportCSV(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "MISSING_FILE", "expected a multipart file field named 'file'")
		return
	}

	opened, err := file.Open()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "FILE_OPEN_FAILED", err.Error())
		return
	}
	defer opened.Close()

	records, err := csv.NewReader(opened).ReadAll()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_CSV", err.Error())
		return
	}

	days := make([]consumption.DailyProfile, 0, len(records))
	for _, row := range records {
		if len(row) != 25 {
			continue
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			continue
		}
		var profile consumption.DailyProfile
		profile.Date = date
		valid := true
		for i := 0; i < 24; i++ {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				valid = false
				break
			}
			profile.Hours[i] = v
		}
		if valid {
			days = append(days, profile)
		}
	}

	result, err := h.store.ImportDetailedHistory(days)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "IMPORT_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
