package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
)

// ShiftRepository 排班数据访问接口（只读）
type ShiftRepository interface {
	// 员工在 [from, to] 日期范围内的排班（含时段）
	ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.Shift, error)
	// 指定日期的全部排班（含时段）
	ListByDates(ctx context.Context, dates ...time.Time) ([]model.Shift, error)
}

type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) preloadSegments(db *gorm.DB) *gorm.DB {
	return db.Preload("Segments", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC, id ASC")
	})
}

func (r *shiftRepo) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.preloadSegments(r.db.WithContext(ctx)).
		Where("employee_id = ? AND date BETWEEN ? AND ?", employeeID, dateParam(from), dateParam(to)).
		Order("date ASC, id ASC").
		Find(&shifts).Error
	return shifts, err
}

func (r *shiftRepo) ListByDates(ctx context.Context, dates ...time.Time) ([]model.Shift, error) {
	var shifts []model.Shift
	if len(dates) == 0 {
		return shifts, nil
	}
	params := make([]string, len(dates))
	for i, d := range dates {
		params[i] = dateParam(d)
	}
	err := r.preloadSegments(r.db.WithContext(ctx)).
		Where("date IN ?", params).
		Order("employee_id ASC, date ASC, id ASC").
		Find(&shifts).Error
	return shifts, err
}

// dateParam DATE 列按字符串比较，避免驱动按会话时区换算
func dateParam(t time.Time) string { return t.Format("2006-01-02") }
