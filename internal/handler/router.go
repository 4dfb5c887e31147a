package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/service"
)

// Routes groups the handlers mounted on the API.
type Routes struct {
	Timetable  *TimetableHandler
	MassEvents *MassEventHandler
	Exports    *ExportHandler
	Metrics    *MetricsHandler
}

// Register mounts probes at the root and the timetable API under prefix.
func (r Routes) Register(engine *gin.Engine, prefix string, metrics *service.MetricsService) {
	engine.GET("/health", r.Metrics.Health)
	engine.GET("/ready", r.Metrics.Ready)
	engine.GET("/metrics", r.Metrics.Prometheus)

	api := engine.Group(prefix)
	api.Use(middleware.Metrics(metrics), middleware.WithResponseMeta())

	api.GET("/metrics/summary", r.Metrics.Summary)

	api.GET("/timetable/grid", r.Timetable.Grid)
	api.POST("/timetable/conflicts/check", r.Timetable.CheckConflict)
	api.POST("/timetable/availability", r.Timetable.Availability)
	api.POST("/timetable/mass-events", r.MassEvents.Apply)

	api.GET("/classes", r.Timetable.ListClasses)
	api.GET("/classes/:id/timetable", r.Timetable.ClassTimetable)
	api.DELETE("/classes/:id/timetable", r.Timetable.ClearSchedule)
	api.POST("/classes/:id/timetable/slots", r.Timetable.AssignSlot)
	api.POST("/classes/:id/timetable/moves", r.Timetable.MoveSlot)
	api.DELETE("/classes/:id/timetable/slots/:day/:start", r.Timetable.ClearSlot)

	api.GET("/teachers/:id/timetable", r.Timetable.TeacherTimetable)

	api.POST("/timetable/exports", r.Exports.Create)
	api.GET("/timetable/exports/:id", r.Exports.Status)
	api.GET("/export/:token", r.Exports.Download)
}
