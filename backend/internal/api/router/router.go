package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/config"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/api/handler"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/api/middleware"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/jwt"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎。rdb 为 nil 时不启用限流。
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	if rdb != nil {
		v1.Use(middleware.RateLimit(rdb, cfg.Server.RateLimit, cfg.Server.RateWindow, logger))
	}
	{
		// 按需比对：员工仅可查询本人（Handler 层鉴权）
		v1.GET("/comparisons", h.Comparison.Compare)

		// 异常记录（下游薪资、通知读取）
		v1.GET("/anomalies", middleware.RoleAuth(handler.ReaderRoles...), h.Anomaly.ListAnomalies)

		v1.GET("/scheduler/status", middleware.RoleAuth("admin"), h.Scheduler.GetStatus)
	}

	return r
}
