package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/config"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/api/handler"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/api/router"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/repository"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/scheduler"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/service"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/database"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/jwt"
	applogger "github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/logger"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("SHIFTAUDIT_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Attendance.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 连接数据库
	db, err := database.NewDB(ctx, &cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	version, err := database.RunMigrations(sqlDB, logger)
	if err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	logger.Info("数据库迁移完成", zap.Uint("version", version))

	// 4. 连接 Redis（可选：连接失败时降级为单实例，关闭限流）
	var rdb *redis.Client
	rdb, err = redis.NewClient(ctx, &cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，限流与跨实例租约将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 校验器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 比对流水线
	norm, err := attendance.NewNormalizer(cfg.Attendance.Timezone, attendance.SystemClock())
	if err != nil {
		logger.Fatal("时区初始化失败", zap.Error(err))
	}
	comparator := attendance.NewComparator(norm, attendance.ConfigFrom(&cfg.Attendance), logger)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, comparator, logger)

	// 8. 调度器
	var sched *scheduler.Scheduler
	var status handler.SchedulerStatus
	if cfg.Scheduler.Enabled {
		cached := repo.WithEmployeeCache(func(inner repository.EmployeeRepository) repository.EmployeeRepository {
			return repository.NewCachedEmployeeRepo(inner, cfg.Scheduler.EmployeeCacheSize, cfg.Scheduler.EmployeeCacheTTL)
		})
		var locker scheduler.Locker
		if rdb != nil {
			locker = rdb
		}
		sched = scheduler.New(comparator, cached, svc.Anomaly, locker, cfg.Scheduler, cfg.Attendance.CloseoutCutoffHour, logger)
		sched.Start(ctx)
		status = sched
	} else {
		logger.Info("调度器已关闭，仅提供按需比对")
	}

	h := handler.NewHandler(svc, status)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 等待系统信号，优雅关闭
	<-ctx.Done()
	logger.Info("收到关闭信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if sched != nil {
		sched.Stop()
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
