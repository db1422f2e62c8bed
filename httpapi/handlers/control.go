package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/control"
	"github.com/greenhaus/chargesched/httpapi/models"
	"github.com/greenhaus/chargesched/inverterauth"
	"github.com/greenhaus/chargesched/model"
)

// ControlHandler drives the operator-facing subset of control.Loop: manual
// start/stop, automation toggling, and an inverter connectivity probe.
type ControlHandler struct {
	loop     *control.Loop
	inverter *inverterauth.Client
}

func NewControlHandler(loop *control.Loop, inverter *inverterauth.Client) *ControlHandler {
	return &ControlHandler{loop: loop, inverter: inverter}
}

// PostControl handles POST /api/control.
func (h *ControlHandler) PostControl(c *gin.Context) {
	var req models.ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	switch req.Action {
	case "start_charging":
		if !h.loop.StartCharging(req.Power) {
			writeError(c, http.StatusBadGateway, "INVERTER_ERROR", "failed to start manual charging")
			return
		}
	case "stop_charging", "auto_mode":
		if !h.loop.StopCharging() {
			writeError(c, http.StatusBadGateway, "INVERTER_ERROR", "failed to stop manual charging")
			return
		}
	case "toggle_automation":
		h.loop.ToggleAutomation(req.Power != 0)
	case "test_connection":
		if err := h.inverter.TestConnection(); err != nil {
			writeError(c, http.StatusBadGateway, "INVERTER_UNREACHABLE", err.Error())
			return
		}
	default:
		writeError(c, http.StatusBadRequest, "UNKNOWN_ACTION", "unrecognized control action: "+req.Action)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PostAdjustPower handles POST /api/adjust_power, only honored while a
// charging mode is active.
func (h *ControlHandler) PostAdjustPower(c *gin.Context) {
	var req models.AdjustPowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	if mode := h.loop.Snapshot().Mode; mode != model.ModeManualCharging && mode != model.ModeAutoCharging {
		writeError(c, http.StatusBadRequest, "NOT_CHARGING", "adjust_power is only honored while charging")
		return
	}

	if !h.loop.StartCharging(req.Power) {
		writeError(c, http.StatusBadGateway, "INVERTER_ERROR", "failed to adjust charging power")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{Error: models.ErrorDetail{Code: code, Message: message}})
}
