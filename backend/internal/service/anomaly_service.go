package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/dto"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/repository"
	pkgerrors "github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/errors"
)

// AnomalyRecord 待落库的异常
type AnomalyRecord struct {
	EmployeeID  int64
	Date        time.Time
	Type        attendance.AnomalyType
	Severity    attendance.Severity
	Description string
	Details     model.JSONMap
}

// AnomalyService 考勤异常业务接口
type AnomalyService interface {
	// 幂等写入，已存在时静默跳过，返回是否新建
	Record(ctx context.Context, rec *AnomalyRecord) (bool, error)
	// 幂等写入；已存在且新严重程度更高时升级，返回 (新建, 升级)
	RecordOrEscalate(ctx context.Context, rec *AnomalyRecord) (bool, bool, error)
	List(ctx context.Context, req *dto.AnomalyListRequest) ([]dto.AnomalyResponse, int64, error)
}

type anomalyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAnomalyService 创建 AnomalyService 实例
func NewAnomalyService(repo *repository.Repository, logger *zap.Logger) AnomalyService {
	return &anomalyService{repo: repo, logger: logger}
}

func (s *anomalyService) Record(ctx context.Context, rec *AnomalyRecord) (bool, error) {
	a := &model.Anomaly{
		EmployeeID:   rec.EmployeeID,
		BusinessDate: attendance.DateOnly(rec.Date),
		Type:         string(rec.Type),
		Severity:     string(rec.Severity),
		Description:  rec.Description,
		Details:      rec.Details,
		Status:       model.AnomalyStatusPending,
	}
	created, err := s.repo.Anomaly.CreateIfAbsent(ctx, a)
	if err != nil {
		return false, fmt.Errorf("%w: 写入异常失败: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	if created {
		s.logger.Info("创建考勤异常",
			zap.Int64("employee_id", rec.EmployeeID),
			zap.String("date", a.BusinessDate.Format(dateLayout)),
			zap.String("type", a.Type),
			zap.String("severity", a.Severity))
	}
	return created, nil
}

func (s *anomalyService) RecordOrEscalate(ctx context.Context, rec *AnomalyRecord) (bool, bool, error) {
	created, err := s.Record(ctx, rec)
	if err != nil || created {
		return created, false, err
	}

	existing, err := s.repo.Anomaly.FindByKey(ctx, rec.EmployeeID, rec.Date, string(rec.Type))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("%w: 查询异常失败: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	if existing.Status != model.AnomalyStatusPending ||
		severityRank(rec.Severity) <= severityRank(attendance.Severity(existing.Severity)) {
		return false, false, nil
	}

	if err := s.repo.Anomaly.Escalate(ctx, existing.ID, string(rec.Severity), rec.Description, rec.Details); err != nil {
		return false, false, fmt.Errorf("%w: 升级异常失败: %v", pkgerrors.ErrStorageUnavailable, err)
	}
	s.logger.Info("考勤异常升级",
		zap.Int64("anomaly_id", existing.ID),
		zap.String("from", existing.Severity),
		zap.String("to", string(rec.Severity)))
	return false, true, nil
}

func (s *anomalyService) List(ctx context.Context, req *dto.AnomalyListRequest) ([]dto.AnomalyResponse, int64, error) {
	filter := repository.AnomalyFilter{Type: req.Type, Status: req.Status}
	if req.EmployeeID != "" {
		id, err := ParseEmployeeID(req.EmployeeID)
		if err != nil {
			return nil, 0, err
		}
		filter.EmployeeID = id
	}
	if req.DateFrom != "" {
		d, err := parseDate(req.DateFrom)
		if err != nil {
			return nil, 0, err
		}
		filter.DateFrom = &d
	}
	if req.DateTo != "" {
		d, err := parseDate(req.DateTo)
		if err != nil {
			return nil, 0, err
		}
		filter.DateTo = &d
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, 0, fmt.Errorf("%w: date_to 早于 date_from", ErrInvalidDateRange)
	}

	rows, total, err := s.repo.Anomaly.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询异常列表失败", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: 查询异常列表失败: %v", pkgerrors.ErrStorageUnavailable, err)
	}

	list := make([]dto.AnomalyResponse, 0, len(rows))
	for i := range rows {
		list = append(list, toAnomalyResponse(&rows[i]))
	}
	return list, total, nil
}

// severityRank 仅用于升级判断
func severityRank(s attendance.Severity) int {
	switch s {
	case attendance.SeverityHaute, attendance.SeverityCritique:
		return 3
	case attendance.SeverityMoyenne, attendance.SeverityAttention, attendance.SeverityAValider, attendance.SeverityHorsPlage:
		return 2
	case attendance.SeverityInfo:
		return 1
	default:
		return 0
	}
}

func toAnomalyResponse(a *model.Anomaly) dto.AnomalyResponse {
	resp := dto.AnomalyResponse{
		ID:           a.ID,
		EmployeeID:   a.EmployeeID,
		BusinessDate: a.BusinessDate.Format(dateLayout),
		Type:         a.Type,
		Severity:     a.Severity,
		Description:  a.Description,
		Details:      a.Details,
		Status:       a.Status,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
	}
	if a.ResolvedAt != nil {
		v := a.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &v
	}
	return resp
}
