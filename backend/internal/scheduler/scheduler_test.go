package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/config"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/service"
	pkgerrors "github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/errors"
)

// ── 测试辅助 ──

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

var paris, _ = time.LoadLocation("Europe/Paris")

func at(d, h, m int) time.Time { return time.Date(2026, 5, d, h, m, 0, 0, paris) }

func day(d int) time.Time { return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC) }

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:                       true,
		Interval:                      time.Hour,
		RecentEndWindowMinutes:        2,
		CatchUpGraceMinutes:           5,
		UnmatchedEveryMinutes:         5,
		UnmatchedToleranceMinutes:     240,
		StillClockedInEveryMinutes:    10,
		StillClockedInAfterMinutes:    60,
		StillClockedInEscalateMinutes: 180,
		LockTTL:                       55 * time.Second,
		IgnoredRoles:                  []string{"admin", "manager", "rh"},
	}
}

func setupTestScheduler(t *testing.T, now time.Time, locker Locker) (*Scheduler, *mockRepos, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: now}
	norm, err := attendance.NewNormalizer("Europe/Paris", clock)
	if err != nil {
		t.Fatalf("创建 Normalizer 失败: %v", err)
	}
	cmp := attendance.NewComparator(norm, attendance.DefaultConfig(), zap.NewNop())
	repo, mocks := newMockRepository()
	for _, e := range []model.Employee{
		{ID: 1, FirstName: "Léa", Role: "employee", Status: model.EmployeeStatusActive},
		{ID: 2, FirstName: "Marc", Role: "employee", Status: model.EmployeeStatusInactive},
		{ID: 3, FirstName: "Inès", Role: "admin", Status: model.EmployeeStatusActive},
		{ID: 4, FirstName: "Paul", Role: "employee", Status: model.EmployeeStatusActive},
		{ID: 5, FirstName: "Nora", Role: "employee", Status: model.EmployeeStatusActive},
	} {
		mocks.employee.employees[e.ID] = &e
	}
	anomalies := service.NewAnomalyService(repo, zap.NewNop())
	s := New(cmp, repo, anomalies, locker, testSchedulerConfig(), 6, zap.NewNop())
	return s, mocks, clock
}

func strPtr(s string) *string { return &s }

func workShift(id, employeeID int64, d time.Time, start, end string) model.Shift {
	return model.Shift{
		ID: id, EmployeeID: employeeID, Date: d, Kind: "travail",
		Segments: []model.ShiftSegment{{Kind: "travail", StartTime: strPtr(start), EndTime: strPtr(end)}},
	}
}

func punch(employeeID int64, t time.Time, dir string) model.Punch {
	return model.Punch{EmployeeID: employeeID, PunchedAt: t.UTC(), Direction: dir}
}

// ── 班次结束检查 ──

func TestTick_AbsenceTotaleIsIdempotent(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 17, 1), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}
	ctx := context.Background()

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("第二次 Tick 应成功: %v", err)
	}

	if n := mocks.anomaly.count(); n != 1 {
		t.Fatalf("重复巡检不应产生重复异常，期望 1 条，实际 %d", n)
	}
	a := mocks.anomaly.get(1, day(4), "absence_totale")
	if a == nil {
		t.Fatal("期望 absence_totale")
	}
	if a.Severity != "critique" {
		t.Errorf("期望 critique，实际 %s", a.Severity)
	}
	if a.Details["detected_by"] != "scheduler" || a.Details["detected_automatically"] != true {
		t.Errorf("details 来源标记错误: %+v", a.Details)
	}
	if a.Details["planned_value"] != "09:00-17:00" {
		t.Errorf("计划值错误: %v", a.Details["planned_value"])
	}

	st := s.Status()
	if st.Ticks != 2 || st.Created != 1 || st.LastError != "" {
		t.Errorf("状态错误: %+v", st)
	}
}

func TestTick_SkipsIneligibleEmployees(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 17, 2), nil)
	mocks.shift.shifts = []model.Shift{
		workShift(1, 2, day(4), "09:00", "17:00"),  // 离职
		workShift(2, 3, day(4), "09:00", "17:00"),  // admin
		workShift(3, 99, day(4), "09:00", "17:00"), // 不存在
	}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if n := mocks.anomaly.count(); n != 0 {
		t.Errorf("不应为被过滤的员工创建异常，实际 %d 条", n)
	}
}

func TestTick_EndedShiftClassifiesPunches(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 17, 0), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}
	mocks.punch.punches = []model.Punch{
		punch(1, at(4, 9, 25), "arrivee"),
		punch(1, at(4, 16, 50), "depart"),
	}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if n := mocks.anomaly.count(); n != 1 {
		t.Fatalf("仅迟到需要落库，期望 1 条，实际 %d", n)
	}
	a := mocks.anomaly.get(1, day(4), "retard_critique")
	if a == nil {
		t.Fatal("期望 retard_critique")
	}
	if a.Details["ecart_minutes"] != -25 || a.Details["segment_index"] != 1 {
		t.Errorf("details 错误: %+v", a.Details)
	}
}

func TestTick_NotDueShiftIsIgnored(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 17, 3), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if n := mocks.anomaly.count(); n != 0 {
		t.Errorf("结束超过 2 分钟的班次由补检处理，实际 %d 条", n)
	}
}

func TestTick_OvernightShiftAfterMidnight(t *testing.T) {
	// 凌晨 02:01 仍属前一营业日
	s, mocks, _ := setupTestScheduler(t, at(5, 2, 1), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "22:00", "02:00")}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if a := mocks.anomaly.get(1, day(4), "absence_totale"); a == nil {
		t.Error("跨午夜班次结束后应检测到 absence_totale")
	}
}

// ── 补检 ──

func TestCatchUp_ChecksShiftsPastGrace(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 18, 0), nil)
	mocks.shift.shifts = []model.Shift{
		workShift(1, 1, day(4), "09:00", "17:00"),
		workShift(2, 4, day(4), "10:00", "17:58"), // 宽限期内
	}

	if err := s.CatchUp(context.Background()); err != nil {
		t.Fatalf("CatchUp 应成功: %v", err)
	}
	a := mocks.anomaly.get(1, day(4), "absence_totale")
	if a == nil {
		t.Fatal("期望补检出 absence_totale")
	}
	if a.Details["detected_by"] != "scheduler_catchup" {
		t.Errorf("期望 scheduler_catchup，实际 %v", a.Details["detected_by"])
	}
	if mocks.anomaly.get(4, day(4), "absence_totale") != nil {
		t.Error("宽限期内的班次不应补检")
	}
}

// ── 未匹配打卡 ──

func TestTick_UnmatchedPunchSweep(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 15, 5), nil)
	mocks.shift.shifts = []model.Shift{
		workShift(1, 5, day(4), "11:00", "19:00"),
		workShift(2, 4, day(4), "20:00", "23:00"),
	}
	mocks.punch.punches = []model.Punch{
		punch(1, at(4, 10, 0), "arrivee"),
		punch(1, at(4, 13, 30), "depart"),
		punch(5, at(4, 10, 0), "arrivee"),
		punch(4, at(4, 10, 0), "arrivee"),
	}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}

	a := mocks.anomaly.get(1, day(4), "pointage_hors_planning")
	if a == nil {
		t.Fatal("无排班的到达应记为 pointage_hors_planning")
	}
	if a.Severity != "attention" || a.Details["detected_by"] != "scheduler_unmatched" {
		t.Errorf("严重程度或来源错误: %s %v", a.Severity, a.Details["detected_by"])
	}
	if got := a.Details["worked_hours"].(decimal.Decimal).String(); got != "3.5" {
		t.Errorf("工时应为 3.5，实际 %s", got)
	}

	if mocks.anomaly.get(5, day(4), "pointage_hors_planning") != nil {
		t.Error("容差内有排班的到达不应告警")
	}
	if mocks.anomaly.get(4, day(4), "pointage_hors_planning") == nil {
		t.Error("距排班开始超过 240 分钟的到达应告警")
	}
}

func TestTick_UnmatchedSweepOnlyOnCadence(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 15, 6), nil)
	mocks.punch.punches = []model.Punch{punch(1, at(4, 10, 0), "arrivee")}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if n := mocks.anomaly.count(); n != 0 {
		t.Errorf("非 5 分钟整点不应巡检未匹配打卡，实际 %d 条", n)
	}
}

func TestTick_UnmatchedAcceptsYesterdayNightShift(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(5, 1, 5), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "22:00", "04:00")}
	mocks.punch.punches = []model.Punch{punch(1, at(4, 21, 55), "arrivee")}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if mocks.anomaly.get(1, day(4), "pointage_hors_planning") != nil {
		t.Error("前一日夜班的到达不应告警")
	}
}

// ── 仍在岗 ──

func TestTick_StillClockedInEscalates(t *testing.T) {
	s, mocks, clock := setupTestScheduler(t, at(4, 18, 10), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}
	mocks.punch.punches = []model.Punch{punch(1, at(4, 8, 55), "arrivee")}
	ctx := context.Background()

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	a := mocks.anomaly.get(1, day(4), "missing_out_prolonge")
	if a == nil {
		t.Fatal("期望 missing_out_prolonge")
	}
	if a.Severity != "moyenne" {
		t.Errorf("70 分钟应为 moyenne，实际 %s", a.Severity)
	}
	if a.Details["minutes_after_end"] != 70 || a.Details["planned_end"] != "17:00" {
		t.Errorf("details 错误: %+v", a.Details)
	}

	clock.Set(at(4, 20, 30))
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	a = mocks.anomaly.get(1, day(4), "missing_out_prolonge")
	if a.Severity != "haute" {
		t.Errorf("210 分钟应升级为 haute，实际 %s", a.Severity)
	}
	if got := a.Details["overtime_hours"].(decimal.Decimal).String(); got != "3.5" {
		t.Errorf("加班估算应为 3.5，实际 %s", got)
	}
	if n := mocks.anomaly.count(); n != 1 {
		t.Errorf("升级不应新增记录，实际 %d 条", n)
	}
}

func TestTick_StillClockedInBeforeThreshold(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 17, 50), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}
	mocks.punch.punches = []model.Punch{punch(1, at(4, 9, 0), "arrivee")}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if mocks.anomaly.get(1, day(4), "missing_out_prolonge") != nil {
		t.Error("下班未满 60 分钟不应告警")
	}
}

// ── 日终结算 ──

func TestTick_CloseoutFinishedBusinessDay(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(5, 6, 0), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}
	mocks.punch.punches = []model.Punch{
		punch(1, at(4, 8, 58), "arrivee"),
		punch(4, at(4, 9, 0), "arrivee"),
		punch(4, at(4, 17, 0), "depart"),
	}

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	a := mocks.anomaly.get(1, day(4), "cloture_auto_journee")
	if a == nil {
		t.Fatal("期望 cloture_auto_journee")
	}
	if a.Severity != "haute" || a.Details["detected_by"] != "scheduler_closeout" {
		t.Errorf("严重程度或来源错误: %s %v", a.Severity, a.Details["detected_by"])
	}
	if got := a.Details["unaccounted_hours"].(decimal.Decimal).String(); got != "13" {
		t.Errorf("未计工时应为 13，实际 %s", got)
	}
	if mocks.anomaly.get(4, day(4), "cloture_auto_journee") != nil {
		t.Error("已打离开卡的员工不应结算")
	}
}

// ── 并发与存储 ──

func TestTick_SingleFlight(t *testing.T) {
	s, _, _ := setupTestScheduler(t, at(4, 12, 1), nil)
	s.ticking.Store(true)

	err := s.Tick(context.Background())
	if !errors.Is(err, ErrTickInProgress) {
		t.Fatalf("期望 ErrTickInProgress，实际: %v", err)
	}
	if st := s.Status(); st.Skipped != 1 || st.Ticks != 0 {
		t.Errorf("状态错误: %+v", st)
	}
}

func TestTick_Lease(t *testing.T) {
	locker := &fakeLocker{}
	s, _, _ := setupTestScheduler(t, at(4, 12, 1), locker)
	ctx := context.Background()

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick 应成功: %v", err)
	}
	if locker.locked != 1 || locker.unlocked != 1 {
		t.Errorf("租约应获取并释放一次: locked=%d unlocked=%d", locker.locked, locker.unlocked)
	}

	locker.held = true
	if err := s.Tick(ctx); !errors.Is(err, ErrLeaseHeld) {
		t.Errorf("期望 ErrLeaseHeld，实际: %v", err)
	}
	if st := s.Status(); st.Skipped != 1 || st.Ticks != 1 {
		t.Errorf("状态错误: %+v", st)
	}
}

func TestTick_StorageErrorAbortsTick(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 17, 1), nil)
	mocks.shift.err = errMockStorage

	err := s.Tick(context.Background())
	if !errors.Is(err, pkgerrors.ErrStorageUnavailable) {
		t.Fatalf("期望 ErrStorageUnavailable，实际: %v", err)
	}
	if st := s.Status(); st.LastError == "" {
		t.Error("状态应记录最后一次错误")
	}

	mocks.shift.err = nil
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("存储恢复后 Tick 应成功: %v", err)
	}
	if st := s.Status(); st.LastError != "" {
		t.Errorf("成功后应清空错误，实际 %q", st.LastError)
	}
}

func TestStartStop(t *testing.T) {
	s, mocks, _ := setupTestScheduler(t, at(4, 18, 0), nil)
	mocks.shift.shifts = []model.Shift{workShift(1, 1, day(4), "09:00", "17:00")}

	s.Start(context.Background())
	s.Start(context.Background()) // 重复调用无效
	s.Stop()

	st := s.Status()
	if st.Running {
		t.Error("Stop 后不应处于运行状态")
	}
	if st.Ticks != 1 {
		t.Errorf("启动时应执行一次补检，实际 %d", st.Ticks)
	}
	if mocks.anomaly.get(1, day(4), "absence_totale") == nil {
		t.Error("补检应检测到 absence_totale")
	}
}
