package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/control"
	"github.com/greenhaus/chargesched/httpapi/models"
)

// StatusHandler serves the current snapshot and the structured explainer
// output. Every method only reads through the control loop's thread-safe
// exported methods, never the bare AppState.
type StatusHandler struct {
	loop *control.Loop
}

func NewStatusHandler(loop *control.Loop) *StatusHandler {
	return &StatusHandler{loop: loop}
}

// GetStatus handles GET /api/status.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	snap := h.loop.Snapshot()

	resp := models.StatusResponse{
		Battery: models.BatteryView{
			SoC:     snap.Battery.SoC,
			Power:   snap.Battery.Power,
			Voltage: snap.Battery.Voltage,
		},
		BatteryUpdatedAt: snap.BatteryUpdatedAt,
		Mode:             string(snap.Mode),
		PVRemainingToday: snap.Forecast.RemainingToday,
	}
	if snap.Plan.Valid {
		resp.Plan = &models.PlanView{
			PlannedStart: snap.Plan.PlannedStart,
			PlannedEnd:   snap.Plan.PlannedEnd,
			TargetSoC:    snap.Plan.TargetSoC,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetChargingPlan handles GET /api/charging_plan.
func (h *StatusHandler) GetChargingPlan(c *gin.Context) {
	snap := h.loop.Snapshot()
	if !snap.Plan.Valid {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":         true,
		"planned_start": snap.Plan.PlannedStart,
		"planned_end":   snap.Plan.PlannedEnd,
		"target_soc":    snap.Plan.TargetSoC,
	})
}

// GetChargingStatus handles GET /api/charging_status, the structured
// explainer output.
func (h *StatusHandler) GetChargingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.loop.Explain())
}

// GetLogs handles GET /api/logs.
func (h *StatusHandler) GetLogs(c *gin.Context) {
	snap := h.loop.Snapshot()
	entries := make([]models.LogEntryView, 0, len(snap.Logs))
	for _, l := range snap.Logs {
		entries = append(entries, models.LogEntryView{Time: l.Time, Level: string(l.Level), Message: l.Message})
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
