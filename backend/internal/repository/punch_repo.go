package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
)

// PunchRepository 打卡数据访问接口（只读）
type PunchRepository interface {
	// 员工在 [from, to) 时刻区间内的打卡，按时间升序
	ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.Punch, error)
	// 全部员工在 [from, to) 时刻区间内的打卡
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Punch, error)
}

type punchRepo struct {
	db *gorm.DB
}

// NewPunchRepo 创建 PunchRepository 实例
func NewPunchRepo(db *gorm.DB) PunchRepository {
	return &punchRepo{db: db}
}

func (r *punchRepo) ListByEmployee(ctx context.Context, employeeID int64, from, to time.Time) ([]model.Punch, error) {
	var punches []model.Punch
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND punched_at >= ? AND punched_at < ?", employeeID, from.UTC(), to.UTC()).
		Order("punched_at ASC, id ASC").
		Find(&punches).Error
	return punches, err
}

func (r *punchRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Punch, error) {
	var punches []model.Punch
	err := r.db.WithContext(ctx).
		Where("punched_at >= ? AND punched_at < ?", from.UTC(), to.UTC()).
		Order("employee_id ASC, punched_at ASC, id ASC").
		Find(&punches).Error
	return punches, err
}
