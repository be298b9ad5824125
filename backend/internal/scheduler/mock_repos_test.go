package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/repository"
)

var errMockStorage = errors.New("mock: 存储不可用")

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct {
	employees map[int64]*model.Employee
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id int64) (*model.Employee, error) {
	if e, ok := m.employees[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Employee, error) {
	var out []model.Employee
	for _, id := range ids {
		if e, ok := m.employees[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	shifts []model.Shift
	err    error
}

func (m *mockShiftRepo) ListByEmployee(_ context.Context, employeeID int64, from, to time.Time) ([]model.Shift, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Shift
	for _, s := range m.shifts {
		if s.EmployeeID == employeeID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockShiftRepo) ListByDates(_ context.Context, dates ...time.Time) ([]model.Shift, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Shift
	for _, s := range m.shifts {
		for _, d := range dates {
			if s.Date.Equal(d) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// ── Mock PunchRepository ──

type mockPunchRepo struct {
	punches []model.Punch
}

func (m *mockPunchRepo) ListByEmployee(_ context.Context, employeeID int64, from, to time.Time) ([]model.Punch, error) {
	var out []model.Punch
	for _, p := range m.punches {
		if p.EmployeeID == employeeID && !p.PunchedAt.Before(from) && p.PunchedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPunchRepo) ListBetween(_ context.Context, from, to time.Time) ([]model.Punch, error) {
	var out []model.Punch
	for _, p := range m.punches {
		if !p.PunchedAt.Before(from) && p.PunchedAt.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ── Mock AnomalyRepository ──

type mockAnomalyRepo struct {
	mu        sync.Mutex
	anomalies map[string]*model.Anomaly
	nextID    int64
}

func anomalyKey(employeeID int64, date time.Time, typ string) string {
	return fmt.Sprintf("%d|%s|%s", employeeID, date.Format("2006-01-02"), typ)
}

func (m *mockAnomalyRepo) CreateIfAbsent(_ context.Context, a *model.Anomaly) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := anomalyKey(a.EmployeeID, a.BusinessDate, a.Type)
	if _, ok := m.anomalies[key]; ok {
		return false, nil
	}
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.anomalies[key] = &cp
	return true, nil
}

func (m *mockAnomalyRepo) FindByKey(_ context.Context, employeeID int64, date time.Time, typ string) (*model.Anomaly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.anomalies[anomalyKey(employeeID, date, typ)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAnomalyRepo) Escalate(_ context.Context, id int64, severity, description string, details model.JSONMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.anomalies {
		if a.ID == id && a.Status == model.AnomalyStatusPending {
			a.Severity = severity
			a.Description = description
			a.Details = details
		}
	}
	return nil
}

func (m *mockAnomalyRepo) List(_ context.Context, _ repository.AnomalyFilter, offset, limit int) ([]model.Anomaly, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]model.Anomaly, 0, len(m.anomalies))
	for _, a := range m.anomalies {
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	end := min(offset+limit, len(all))
	if offset >= end {
		return []model.Anomaly{}, int64(len(all)), nil
	}
	return all[offset:end], int64(len(all)), nil
}

func (m *mockAnomalyRepo) get(employeeID int64, date time.Time, typ string) *model.Anomaly {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anomalies[anomalyKey(employeeID, date, typ)]
}

func (m *mockAnomalyRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.anomalies)
}

// ── Fake Locker ──

type fakeLocker struct {
	held     bool
	locked   int
	unlocked int
}

func (l *fakeLocker) TryLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.locked++
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, _, _ string) error {
	l.unlocked++
	return nil
}

// ── 测试辅助 ──

type mockRepos struct {
	employee *mockEmployeeRepo
	shift    *mockShiftRepo
	punch    *mockPunchRepo
	anomaly  *mockAnomalyRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		employee: &mockEmployeeRepo{employees: make(map[int64]*model.Employee)},
		shift:    &mockShiftRepo{},
		punch:    &mockPunchRepo{},
		anomaly:  &mockAnomalyRepo{anomalies: make(map[string]*model.Anomaly)},
	}
	return &repository.Repository{
		Employee: m.employee,
		Shift:    m.shift,
		Punch:    m.punch,
		Anomaly:  m.anomaly,
	}, m
}
