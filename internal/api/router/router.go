package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staffhub/backend/config"
	"staffhub/backend/internal/api/handler"
	"staffhub/backend/internal/api/middleware"
	"staffhub/backend/pkg/jwt"
	"staffhub/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
//
// 细粒度权限不在路由层做：范围型判定（global / company / assigned / self）
// 依赖目标用户，统一由 Service 层经 PermissionResolver 执行。
// 路由层只负责认证与请求级缓存的装配。
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录接口限流防爆破）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", middleware.RateLimit(rdb, 20, time.Minute), h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		authorized.Use(middleware.RequestScope())
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
				users.PATCH("/:id", h.User.Update)
			}

			// 角色模块
			roles := authorized.Group("/roles")
			{
				roles.GET("", h.Role.List)
				roles.GET("/:id", h.Role.Get)
				roles.POST("", h.Role.Create)
				roles.PATCH("/:id", h.Role.Update)
				roles.DELETE("/:id", h.Role.Delete)
			}

			// 系统设置模块
			settings := authorized.Group("/settings")
			{
				settings.GET("", h.Settings.Get)
				settings.PATCH("", h.Settings.Update)
			}

			// 班次模块
			shifts := authorized.Group("/shifts")
			{
				shifts.GET("", h.Shift.GetMonth)
				shifts.GET("/window", h.Shift.CheckWindow)
				shifts.POST("", h.Shift.Register)
				shifts.POST("/batch", h.Shift.BatchCreate)
				shifts.POST("/bulk-update", h.Shift.BulkUpdate)
				shifts.POST("/bulk-delete", h.Shift.BulkDelete)
				shifts.POST("/unlock", h.Shift.Unlock)
				shifts.PATCH("/:id", h.Shift.Update)
				shifts.DELETE("/:id", h.Shift.Delete)
			}

			// 考勤模块
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("/punch", h.Attendance.Punch)
				attendance.POST("/force-clock", h.Attendance.ForceClock)
				attendance.POST("/corrections", h.Attendance.Correct)
				attendance.GET("/monthly", h.Attendance.MonthlyView)
				attendance.GET("/team", h.Attendance.TeamSummary)
				attendance.GET("/events/:id/corrections", h.Attendance.ListCorrections)
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/attendance", h.Export.ExportMonthlyAttendance)
			}
		}
	}

	return r
}
