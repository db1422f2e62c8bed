// Package httpapi assembles the operator-facing HTTP surface: status,
// config, manual control, consumption learning, and log-ring endpoints,
// plus a live status websocket feed. None of it sits on the scheduling
// core's critical path -- every handler only calls through control.Loop's
// exported thread-safe methods.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/consumption"
	"github.com/greenhaus/chargesched/control"
	"github.com/greenhaus/chargesched/httpapi/handlers"
	"github.com/greenhaus/chargesched/httpapi/middleware"
	"github.com/greenhaus/chargesched/httpapi/ws"
	"github.com/greenhaus/chargesched/inverterauth"
)

// NewRouter wires every route of spec.md's HTTP surface table onto a gin
// engine, plus the live status websocket feed. configPath is the on-disk
// profile GetConfig/PostConfig read and write. The returned *ws.Handler
// must be run via Run (in its own goroutine) to actually push ticks to
// connected clients; the router alone only accepts connections.
func NewRouter(loop *control.Loop, inverter *inverterauth.Client, store *consumption.Store, configPath string) (*gin.Engine, *ws.Handler) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	status := handlers.NewStatusHandler(loop)
	ctrl := handlers.NewControlHandler(loop, inverter)
	plan := handlers.NewPlanHandler(loop)
	cfg := handlers.NewConfigHandler(configPath)
	cons := handlers.NewConsumptionHandler(store)

	router.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.GET("/status", status.GetStatus)
		api.GET("/config", cfg.GetConfig)
		api.POST("/config", cfg.PostConfig)
		api.POST("/control", ctrl.PostControl)
		api.POST("/adjust_power", ctrl.PostAdjustPower)
		api.POST("/recalculate_plan", plan.PostRecalculatePlan)
		api.GET("/charging_plan", status.GetChargingPlan)
		api.GET("/charging_status", status.GetChargingStatus)
		api.GET("/consumption_learning", cons.GetLearning)
		api.POST("/consumption_import_csv", cons.PostImportCSV)
		api.GET("/consumption_data", cons.GetOrPostConsumptionData)
		api.POST("/consumption_data", cons.GetOrPostConsumptionData)
		api.GET("/logs", status.GetLogs)
	}

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub, loop)
	router.GET("/api/ws/status", gin.WrapH(wsHandler))

	return router, wsHandler
}

// Run blocks, pushing the explainer's output to every connected status-feed
// client until ctx is cancelled. Intended to be started with `go`.
func Run(ctx context.Context, wsHandler *ws.Handler) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	wsHandler.RunBroadcastLoop(done)
}
