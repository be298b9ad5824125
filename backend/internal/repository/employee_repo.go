package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/maypok86/otter/v2"
	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
)

// EmployeeRepository 员工数据访问接口（只读）
type EmployeeRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Employee, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Employee, error)
}

type employeeRepo struct {
	db *gorm.DB
}

// NewEmployeeRepo 创建 EmployeeRepository 实例
func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) GetByID(ctx context.Context, id int64) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *employeeRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Employee, error) {
	var list []model.Employee
	if len(ids) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&list).Error
	return list, err
}

// ── 带 TTL 缓存的员工查询 ──

type cachedEmployeeRepo struct {
	inner EmployeeRepository
	cache *otter.Cache[string, model.Employee]
}

// NewCachedEmployeeRepo 在 inner 之上加一层进程内 TTL 缓存。
// 调度器每分钟都会查询同一批员工，员工信息变化频率远低于巡检频率。
func NewCachedEmployeeRepo(inner EmployeeRepository, size int, ttl time.Duration) EmployeeRepository {
	if size <= 0 {
		size = 10_000
	}
	cache := otter.Must(&otter.Options[string, model.Employee]{
		MaximumSize:      size,
		InitialCapacity:  min(size, 1024),
		ExpiryCalculator: otter.ExpiryWriting[string, model.Employee](ttl),
	})
	return &cachedEmployeeRepo{inner: inner, cache: cache}
}

func employeeKey(id int64) string { return "employee:" + strconv.FormatInt(id, 10) }

func (r *cachedEmployeeRepo) GetByID(ctx context.Context, id int64) (*model.Employee, error) {
	if e, ok := r.cache.GetIfPresent(employeeKey(id)); ok {
		return &e, nil
	}
	e, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(employeeKey(id), *e)
	return e, nil
}

func (r *cachedEmployeeRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Employee, error) {
	out := make([]model.Employee, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		if e, ok := r.cache.GetIfPresent(employeeKey(id)); ok {
			out = append(out, e)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := r.inner.ListByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, e := range fetched {
		r.cache.Set(employeeKey(e.ID), e)
	}
	return append(out, fetched...), nil
}
