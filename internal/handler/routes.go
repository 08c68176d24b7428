package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/eduportal-api/internal/middleware"
)

// Routes bundles the API handlers and the gates mounted in front of them.
type Routes struct {
	Sessions   *SessionHandler
	Attendance *AttendanceHandler
	Auth       gin.HandlerFunc
	Logger     *zap.Logger
}

// Register mounts the class session and attendance endpoints on api.
func (r Routes) Register(api *gin.RouterGroup) {
	secured := api.Group("")
	if r.Auth != nil {
		secured.Use(r.Auth)
	}
	editors := middleware.RequireRoles(middleware.SessionEditors...)

	classes := secured.Group("/classes/:classId")
	classes.GET("/sessions", r.Sessions.Calendar)
	classes.POST("/sessions", editors, middleware.Audit(r.Logger, "create", "class_session"), r.Sessions.Create)
	classes.GET("/attendance", editors, r.Attendance.Matrix)
	classes.PUT("/attendance", editors, middleware.Audit(r.Logger, "save", "attendance"), r.Attendance.Save)
	classes.GET("/attendance/export", editors, r.Attendance.Export)

	secured.PATCH("/sessions/:id", editors, middleware.Audit(r.Logger, "update", "class_session"), r.Sessions.Update)
	secured.DELETE("/sessions/:id", editors, middleware.Audit(r.Logger, "delete", "class_session"), r.Sessions.Delete)
	secured.DELETE("/recurrence-groups/:groupId", editors, middleware.Audit(r.Logger, "delete", "recurrence_group"), r.Sessions.DeleteGroup)
}
