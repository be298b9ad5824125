package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
)

type countingEmployeeRepo struct {
	data  map[int64]model.Employee
	calls int
}

func (r *countingEmployeeRepo) GetByID(_ context.Context, id int64) (*model.Employee, error) {
	r.calls++
	e, ok := r.data[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *countingEmployeeRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Employee, error) {
	r.calls++
	var out []model.Employee
	for _, id := range ids {
		if e, ok := r.data[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestCachedEmployeeRepo_GetByID(t *testing.T) {
	inner := &countingEmployeeRepo{data: map[int64]model.Employee{
		1: {ID: 1, FirstName: "Alice", Status: model.EmployeeStatusActive},
	}}
	repo := NewCachedEmployeeRepo(inner, 100, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e, err := repo.GetByID(ctx, 1)
		if err != nil || e.FirstName != "Alice" {
			t.Fatalf("第 %d 次查询失败: %v", i, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("缓存命中后不应再查库，实际查询 %d 次", inner.calls)
	}

	if _, err := repo.GetByID(ctx, 2); err != gorm.ErrRecordNotFound {
		t.Errorf("不存在的员工应透传 ErrRecordNotFound，实际 %v", err)
	}
}

func TestCachedEmployeeRepo_ListByIDsFetchesOnlyMissing(t *testing.T) {
	inner := &countingEmployeeRepo{data: map[int64]model.Employee{
		1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3},
	}}
	repo := NewCachedEmployeeRepo(inner, 100, time.Minute)
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, 1); err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	list, err := repo.ListByIDs(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("ListByIDs 失败: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("期望 3 名员工，实际 %d", len(list))
	}

	list, _ = repo.ListByIDs(ctx, []int64{2, 3})
	if len(list) != 2 || inner.calls != 2 {
		t.Errorf("全部命中时不应查库: len=%d calls=%d", len(list), inner.calls)
	}
}
