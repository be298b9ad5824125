// Package scheduler 周期性巡检排班与打卡，检测并持久化考勤异常。
//
// 每个 tick 依次执行：
//   - 刚结束的班次：运行比对流水线并落库
//   - 未匹配打卡巡检（每 5 分钟）
//   - 仍在岗巡检（每 10 分钟）
//   - 日终结算（本地 06:00）
//
// 所有写入依赖 (employee_id, business_date, type) 唯一键，重复执行不会产生重复记录。
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/config"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/repository"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/service"
)

// ErrTickInProgress 上一轮巡检尚未结束
var ErrTickInProgress = errors.New("上一轮巡检仍在执行")

// ErrLeaseHeld 其他实例持有本轮租约
var ErrLeaseHeld = errors.New("巡检租约被其他实例持有")

const leaseKey = "scheduler:tick"

// 异常来源标记，写入 details.detected_by
const (
	detectedByTick      = "scheduler"
	detectedByCatchUp   = "scheduler_catchup"
	detectedByUnmatched = "scheduler_unmatched"
	detectedByCloseout  = "scheduler_closeout"
)

// Locker 跨实例租约，*redis.Client 满足该接口
type Locker interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Status 调度器运行状态快照
type Status struct {
	InstanceID     string     `json:"instance_id"`
	Running        bool       `json:"running"`
	Ticking        bool       `json:"ticking"`
	LastTickAt     *time.Time `json:"last_tick_at,omitempty"`
	LastDurationMs int64      `json:"last_duration_ms"`
	LastError      string     `json:"last_error,omitempty"`
	Ticks          uint64     `json:"ticks"`
	Skipped        uint64     `json:"skipped"`
	Created        uint64     `json:"created"`
}

// Scheduler 考勤异常调度器，由 main 构造并注入，不使用全局单例
type Scheduler struct {
	cmp       *attendance.Comparator
	norm      *attendance.Normalizer
	repo      *repository.Repository
	anomalies service.AnomalyService
	locker    Locker
	cfg       config.SchedulerConfig
	closeout  int // 日终结算切换点（小时）
	ignored   map[string]struct{}
	logger    *zap.Logger
	id        string

	ticking atomic.Bool
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.RWMutex
	lastAt  *time.Time
	lastDur time.Duration
	lastErr string
	ticks   uint64
	skipped uint64
	created uint64
}

// New 创建调度器。locker 为 nil 时按单实例运行。
func New(
	cmp *attendance.Comparator,
	repo *repository.Repository,
	anomalies service.AnomalyService,
	locker Locker,
	cfg config.SchedulerConfig,
	closeoutCutoffHour int,
	logger *zap.Logger,
) *Scheduler {
	ignored := make(map[string]struct{}, len(cfg.IgnoredRoles))
	for _, r := range cfg.IgnoredRoles {
		ignored[r] = struct{}{}
	}
	id := uuid.NewString()
	return &Scheduler{
		cmp:       cmp,
		norm:      cmp.Normalizer(),
		repo:      repo,
		anomalies: anomalies,
		locker:    locker,
		cfg:       cfg,
		closeout:  closeoutCutoffHour,
		ignored:   ignored,
		logger:    logger.With(zap.String("component", "scheduler"), zap.String("instance_id", id)),
		id:        id,
	}
}

// Start 执行一次补检后启动定时循环，重复调用无效
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := s.CatchUp(loopCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("启动补检失败", zap.Error(err))
		}

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := s.Tick(loopCtx); err != nil &&
					!errors.Is(err, ErrTickInProgress) && !errors.Is(err, ErrLeaseHeld) {
					s.logger.Error("巡检失败，下一轮重试", zap.Error(err))
				}
			}
		}
	}()

	s.logger.Info("调度器已启动", zap.Duration("interval", s.cfg.Interval))
}

// Stop 停止循环并等待进行中的巡检结束
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("调度器已停止")
}

// Status 返回运行状态快照
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		InstanceID:     s.id,
		Running:        s.running.Load(),
		Ticking:        s.ticking.Load(),
		LastDurationMs: s.lastDur.Milliseconds(),
		LastError:      s.lastErr,
		Ticks:          s.ticks,
		Skipped:        s.skipped,
		Created:        s.created,
	}
	if s.lastAt != nil {
		t := *s.lastAt
		st.LastTickAt = &t
	}
	return st
}

// Tick 执行一轮巡检。上一轮未结束或租约被占用时跳过。
func (s *Scheduler) Tick(ctx context.Context) error {
	return s.guarded(ctx, s.runTick)
}

// CatchUp 补检当前营业日已结束但可能错过的班次，随后执行一次未匹配与仍在岗巡检
func (s *Scheduler) CatchUp(ctx context.Context) error {
	return s.guarded(ctx, s.runCatchUp)
}

func (s *Scheduler) guarded(ctx context.Context, fn func(context.Context) (int, error)) error {
	if !s.ticking.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn("上一轮巡检仍在执行，跳过本轮")
		return ErrTickInProgress
	}
	defer s.ticking.Store(false)

	if s.locker != nil {
		token := uuid.NewString()
		ok, err := s.locker.TryLock(ctx, leaseKey, token, s.cfg.LockTTL)
		switch {
		case err != nil:
			s.logger.Warn("获取巡检租约失败，按单实例继续", zap.Error(err))
		case !ok:
			s.mu.Lock()
			s.skipped++
			s.mu.Unlock()
			s.logger.Debug("租约被其他实例持有，跳过本轮")
			return ErrLeaseHeld
		default:
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), leaseKey, token); err != nil {
					s.logger.Warn("释放巡检租约失败", zap.Error(err))
				}
			}()
		}
	}

	start := time.Now()
	created, err := fn(ctx)
	dur := time.Since(start)

	s.mu.Lock()
	at := s.norm.Now()
	s.lastAt = &at
	s.lastDur = dur
	s.ticks++
	s.created += uint64(created)
	if err != nil {
		s.lastErr = err.Error()
	} else {
		s.lastErr = ""
	}
	s.mu.Unlock()
	return err
}

// now 当前营业日及其分钟刻度（切换点前的凌晨记为 24h+）
func (s *Scheduler) now() (time.Time, time.Time, int) {
	now := s.norm.Now()
	day := s.norm.BusinessDay(now, s.closeout)
	return now, day, s.norm.MinutesFrom(day, now)
}

func (s *Scheduler) runTick(ctx context.Context) (int, error) {
	now, day, minutes := s.now()
	local := s.norm.Local(now)

	created, err := s.checkEndedShifts(ctx, day, func(end int) bool {
		since := minutes - end
		return since >= 0 && since <= s.cfg.RecentEndWindowMinutes
	}, detectedByTick)
	if err != nil {
		return created, err
	}

	if local.Minute()%s.cfg.UnmatchedEveryMinutes == 0 {
		n, err := s.sweepUnmatched(ctx, now)
		created += n
		if err != nil {
			return created, err
		}
	}

	if local.Minute()%s.cfg.StillClockedInEveryMinutes == 0 {
		n, err := s.sweepStillClockedIn(ctx, day, minutes)
		created += n
		if err != nil {
			return created, err
		}
	}

	if local.Hour() == s.closeout && local.Minute() == 0 {
		n, err := s.closeoutDay(ctx, day.AddDate(0, 0, -1))
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (s *Scheduler) runCatchUp(ctx context.Context) (int, error) {
	now, day, minutes := s.now()

	created, err := s.checkEndedShifts(ctx, day, func(end int) bool {
		return minutes-end > s.cfg.CatchUpGraceMinutes
	}, detectedByCatchUp)
	if err != nil {
		return created, err
	}

	n, err := s.sweepUnmatched(ctx, now)
	created += n
	if err != nil {
		return created, err
	}
	n, err = s.sweepStillClockedIn(ctx, day, minutes)
	created += n
	if err != nil {
		return created, err
	}

	s.logger.Info("启动补检完成",
		zap.String("business_date", day.Format("2006-01-02")),
		zap.Int("created", created))
	return created, nil
}
