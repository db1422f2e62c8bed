package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/control"
)

// PlanHandler exposes the operator-initiated plan recompute.
type PlanHandler struct {
	loop *control.Loop
}

func NewPlanHandler(loop *control.Loop) *PlanHandler {
	return &PlanHandler{loop: loop}
}

// PostRecalculatePlan handles POST /api/recalculate_plan.
func (h *PlanHandler) PostRecalculatePlan(c *gin.Context) {
	h.loop.RecalculatePlan(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
