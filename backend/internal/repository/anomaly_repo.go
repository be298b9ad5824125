package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
)

// AnomalyFilter 异常列表筛选条件，零值字段不参与筛选
type AnomalyFilter struct {
	EmployeeID int64
	DateFrom   *time.Time
	DateTo     *time.Time
	Type       string
	Status     string
}

// AnomalyRepository 考勤异常数据访问接口
type AnomalyRepository interface {
	// 按 (employee_id, business_date, type) 幂等写入，返回是否新建
	CreateIfAbsent(ctx context.Context, a *model.Anomaly) (bool, error)
	FindByKey(ctx context.Context, employeeID int64, date time.Time, typ string) (*model.Anomaly, error)
	// 升级严重程度（仅更新尚未处理的记录）
	Escalate(ctx context.Context, id int64, severity, description string, details model.JSONMap) error
	List(ctx context.Context, filter AnomalyFilter, offset, limit int) ([]model.Anomaly, int64, error)
}

type anomalyRepo struct {
	db *gorm.DB
}

// NewAnomalyRepo 创建 AnomalyRepository 实例
func NewAnomalyRepo(db *gorm.DB) AnomalyRepository {
	return &anomalyRepo{db: db}
}

func (r *anomalyRepo) CreateIfAbsent(ctx context.Context, a *model.Anomaly) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "business_date"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *anomalyRepo) FindByKey(ctx context.Context, employeeID int64, date time.Time, typ string) (*model.Anomaly, error) {
	var a model.Anomaly
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND business_date = ? AND type = ?", employeeID, dateParam(date), typ).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *anomalyRepo) Escalate(ctx context.Context, id int64, severity, description string, details model.JSONMap) error {
	return r.db.WithContext(ctx).
		Model(&model.Anomaly{}).
		Where("id = ? AND status = ?", id, model.AnomalyStatusPending).
		Updates(map[string]interface{}{
			"severity":    severity,
			"description": description,
			"details":     details,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *anomalyRepo) List(ctx context.Context, f AnomalyFilter, offset, limit int) ([]model.Anomaly, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.Anomaly{})
	if f.EmployeeID > 0 {
		db = db.Where("employee_id = ?", f.EmployeeID)
	}
	if f.DateFrom != nil {
		db = db.Where("business_date >= ?", dateParam(*f.DateFrom))
	}
	if f.DateTo != nil {
		db = db.Where("business_date <= ?", dateParam(*f.DateTo))
	}
	if f.Type != "" {
		db = db.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []model.Anomaly
	err := db.Order("business_date DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}
