package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yigit/classroom/internal/app/controllers"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/middleware"
)

// Features toggles optional route groups
type Features struct {
	StudentIdentifiers bool
	GoogleClassroom    bool
}

// Controllers groups the HTTP handlers
type Controllers struct {
	Roster           *controllers.RosterController
	AssignmentRoster *controllers.AssignmentRosterController
	GoogleClassroom  *controllers.GoogleClassroomController
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	ctrls Controllers,
	authMiddleware *middleware.AuthMiddleware,
	orgMiddleware *middleware.OrganizationMiddleware,
	features Features,
) {
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok", "time": time.Now().UTC()}, ""))
	})

	// The state parameter identifies the user, so the callback is public
	if features.GoogleClassroom {
		v1.GET("/google/callback", ctrls.GoogleClassroom.Callback)
	}

	// --- Organization routes: instructors only ---
	organization := v1.Group("/organizations/:organization_id")
	organization.Use(authMiddleware.JWTAuth(), orgMiddleware.RequireInstructor())

	roster := organization.Group("/roster")
	roster.Use(middleware.FeatureEnabled(features.StudentIdentifiers))
	{
		roster.GET("", ctrls.Roster.GetRoster)
		roster.POST("", ctrls.Roster.CreateRoster)
		roster.DELETE("", ctrls.Roster.RemoveRoster)

		roster.POST("/entries", ctrls.Roster.AddStudents)
		roster.PATCH("/entries/:roster_entry_id/link", ctrls.Roster.LinkEntry)
		roster.PATCH("/entries/:roster_entry_id/unlink", ctrls.Roster.UnlinkEntry)
		roster.DELETE("/entries/:roster_entry_id", ctrls.Roster.DeleteEntry)

		google := roster.Group("/google_classroom")
		google.Use(middleware.FeatureEnabled(features.GoogleClassroom))
		{
			google.GET("", ctrls.GoogleClassroom.ListCourses)
			google.GET("/search", ctrls.GoogleClassroom.SearchCourses)
			google.GET("/authorize", ctrls.GoogleClassroom.Authorize)
			google.POST("/import", ctrls.GoogleClassroom.ImportCourse)
		}
	}

	assignments := organization.Group("/assignments")
	assignments.Use(middleware.FeatureEnabled(features.StudentIdentifiers))
	{
		assignments.GET("/:assignment_id/roster", ctrls.AssignmentRoster.GetAssignmentRoster)
	}
}
