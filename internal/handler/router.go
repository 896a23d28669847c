package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jondumad/EcoPulse-Backend/internal/middleware"
	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

// Routes groups the handlers mounted under Prefix, /api/v1 by default.
type Routes struct {
	Prefix        string
	Auth          middleware.TokenValidator
	Registrations *RegistrationHandler
	Attendance    *AttendanceHandler
	Metrics       *MetricsHandler
}

// Register mounts probes, metrics and the versioned API on r.
func (rt Routes) Register(r *gin.Engine) {
	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Ready)
	r.GET("/metrics", rt.Metrics.Prometheus)

	prefix := rt.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix, middleware.JWT(rt.Auth))
	coordinator := middleware.RequireCoordinator()

	missions := api.Group("/missions/:id")
	missions.POST("/register", rt.Registrations.Register)
	missions.DELETE("/register", rt.Registrations.Cancel)
	missions.GET("/registrations", coordinator, rt.Registrations.List)
	missions.GET("/waitlist", coordinator, rt.Registrations.Waitlist)

	regs := api.Group("/registrations/:id", coordinator)
	regs.POST("/promote", rt.Registrations.Promote)
	regs.PATCH("/priority", rt.Registrations.SetPriority)

	att := api.Group("/attendance")
	att.POST("/validate-location", rt.Attendance.ValidateLocation)
	att.POST("/check-in", rt.Attendance.CheckIn)
	att.POST("/check-out", rt.Attendance.CheckOut)
	att.GET("/current", rt.Attendance.Current)
	att.GET("/pending", coordinator, rt.Attendance.Pending)
	att.GET("/recent-activity", coordinator, rt.Attendance.RecentActivity)
	att.PUT("/:id/verify", coordinator, rt.Attendance.Verify)
	att.GET("/missions/:id/qr-code", coordinator, rt.Attendance.QRCode)
	att.POST("/missions/:id/participants/:userId/check-in", coordinator, rt.Attendance.ManualCheckIn)
	att.POST("/missions/:id/participants/:userId/complete", coordinator, rt.Attendance.ManualComplete)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.POST("/reconcile-counts", rt.Registrations.Reconcile)
}
