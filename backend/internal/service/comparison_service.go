package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/dto"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/repository"
)

// ── 比对模块业务错误 ──

var (
	ErrInvalidEmployeeID = errors.New("员工 ID 无效")
	ErrInvalidDate       = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidDateRange  = errors.New("日期范围无效")
	ErrDateRangeTooLarge = errors.New("日期范围超出上限")
	ErrEmployeeNotFound  = errors.New("员工不存在")
	ErrComparisonFailed  = errors.New("比对数据读取失败")
)

const dateLayout = "2006-01-02"

// ComparisonService 计划/实际按需比对接口（只读，不落库）
type ComparisonService interface {
	Compare(ctx context.Context, req *dto.ComparisonRequest) (*dto.ComparisonResponse, error)
}

type comparisonService struct {
	repo         *repository.Repository
	comparator   *attendance.Comparator
	maxRangeDays int
	logger       *zap.Logger
}

// NewComparisonService 创建 ComparisonService 实例
func NewComparisonService(repo *repository.Repository, comparator *attendance.Comparator, maxRangeDays int, logger *zap.Logger) ComparisonService {
	return &comparisonService{repo: repo, comparator: comparator, maxRangeDays: maxRangeDays, logger: logger}
}

func (s *comparisonService) Compare(ctx context.Context, req *dto.ComparisonRequest) (*dto.ComparisonResponse, error) {
	// 1. 参数校验：任何校验失败都不进入计算
	employeeID, err := ParseEmployeeID(req.EmployeeID)
	if err != nil {
		return nil, err
	}
	from, to, err := s.parseRange(req)
	if err != nil {
		return nil, err
	}

	// 2. 员工存在性
	if _, err := s.repo.Employee.GetByID(ctx, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		s.logger.Error("查询员工失败", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrComparisonFailed, err)
	}

	// 3. 读取排班与打卡
	rows, err := s.repo.Shift.ListByEmployee(ctx, employeeID, from, to)
	if err != nil {
		s.logger.Error("查询排班失败", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrComparisonFailed, err)
	}
	norm := s.comparator.Normalizer()
	cutoff := s.comparator.Config().IntraDayCutoffHour
	start, _ := norm.BusinessDayBounds(from, cutoff)
	_, end := norm.BusinessDayBounds(to, cutoff)
	punchRows, err := s.repo.Punch.ListByEmployee(ctx, employeeID, start, end)
	if err != nil {
		s.logger.Error("查询打卡失败", zap.Int64("employee_id", employeeID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrComparisonFailed, err)
	}

	shiftsByDay := GroupShifts(rows, s.logger)
	punches := DomainPunches(punchRows, s.logger)

	// 4. 逐日比对
	resp := &dto.ComparisonResponse{
		EmployeeID: employeeID,
		DateFrom:   from.Format(dateLayout),
		DateTo:     to.Format(dateLayout),
		Days:       make([]dto.DayComparison, 0),
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		report := s.comparator.CompareDay(d, shiftsByDay[d.Format(dateLayout)], punches)
		if len(report.Planned) == 0 && len(report.Sessions) == 0 && len(report.Discrepancies) == 0 {
			continue
		}
		resp.Days = append(resp.Days, toDayComparison(norm, report))
	}
	return resp, nil
}

func (s *comparisonService) parseRange(req *dto.ComparisonRequest) (time.Time, time.Time, error) {
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return d, d, nil
	}
	if req.DateFrom == "" || req.DateTo == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 需要 date 或 date_from/date_to", ErrInvalidDateRange)
	}
	from, err := parseDate(req.DateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate(req.DateTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date_to 早于 date_from", ErrInvalidDateRange)
	}
	if s.maxRangeDays > 0 && int(to.Sub(from).Hours()/24)+1 > s.maxRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: 最多 %d 天", ErrDateRangeTooLarge, s.maxRangeDays)
	}
	return from, to, nil
}

// ParseEmployeeID 解析员工 ID，必须为正整数
func ParseEmployeeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEmployeeID, raw)
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return d, nil
}

// GroupShifts 转换为领域对象并按营业日（YYYY-MM-DD）分组，无法识别的排班记录告警后跳过
func GroupShifts(rows []model.Shift, logger *zap.Logger) map[string][]attendance.Shift {
	out := make(map[string][]attendance.Shift)
	for i := range rows {
		sh, err := rows[i].Domain()
		if err != nil {
			logger.Warn("排班记录无效，已忽略", zap.Int64("shift_id", rows[i].ID), zap.Error(err))
			continue
		}
		key := sh.Date.Format(dateLayout)
		out[key] = append(out[key], sh)
	}
	return out
}

// DomainPunches 转换为领域对象，方向无法识别的打卡告警后跳过
func DomainPunches(rows []model.Punch, logger *zap.Logger) []attendance.Punch {
	out := make([]attendance.Punch, 0, len(rows))
	for i := range rows {
		p, err := rows[i].Domain()
		if err != nil {
			logger.Warn("打卡记录无效，已忽略", zap.Int64("punch_id", rows[i].ID), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out
}

func toDayComparison(norm *attendance.Normalizer, r attendance.DayReport) dto.DayComparison {
	day := dto.DayComparison{
		Date:          r.Date.Format(dateLayout),
		Planned:       make([]dto.PlannedSegmentItem, 0, len(r.Planned)),
		Actual:        make([]dto.SessionItem, 0, len(r.Sessions)),
		Discrepancies: make([]dto.DiscrepancyItem, 0, len(r.Discrepancies)),
		WorkedHours:   attendance.Hours(attendance.WorkedMinutes(r.Sessions)),
	}
	for _, p := range r.Planned {
		day.Planned = append(day.Planned, dto.PlannedSegmentItem{
			Index: p.Index,
			Kind:  string(p.Kind),
			Start: attendance.FormatMinutes(p.Start),
			End:   attendance.FormatMinutes(p.End),
		})
	}
	for _, s := range r.Sessions {
		item := dto.SessionItem{}
		if s.Arrival != nil {
			v := norm.ClockString(*s.Arrival)
			item.Arrival = &v
		}
		if s.Departure != nil {
			v := norm.ClockString(*s.Departure)
			item.Departure = &v
		}
		day.Actual = append(day.Actual, item)
	}
	for _, d := range r.Discrepancies {
		day.Discrepancies = append(day.Discrepancies, dto.DiscrepancyItem{
			Type:         string(d.Type),
			Severity:     string(d.Severity),
			PlannedValue: d.PlannedValue,
			ActualValue:  d.ActualValue,
			DeltaMinutes: d.DeltaMinutes,
			EcartMinutes: d.EcartMinutes,
			SegmentIndex: d.SegmentIndex,
			Description:  d.Description,
		})
	}
	return day
}
