package scheduler

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/model"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/service"
	pkgerrors "github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/errors"
)

// ── 班次结束检查 ──

// checkEndedShifts 对最后一个工作时段结束时间满足 due 的员工运行比对流水线并落库
func (s *Scheduler) checkEndedShifts(ctx context.Context, day time.Time, due func(end int) bool, detectedBy string) (int, error) {
	shifts, err := s.shiftsByEmployee(ctx, day)
	if err != nil {
		return 0, err
	}

	var ids []int64
	for id, list := range shifts {
		if end, ok := lastMandatoryEnd(list); ok && due(end) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	slices.Sort(ids)

	eligible, err := s.eligible(ctx, ids)
	if err != nil {
		return 0, err
	}

	from, to := s.norm.BusinessDayBounds(day, s.cmp.Config().IntraDayCutoffHour)
	created, checked := 0, 0
	for _, id := range ids {
		if _, ok := eligible[id]; !ok {
			continue
		}
		rows, err := s.repo.Punch.ListByEmployee(ctx, id, from, to)
		if err != nil {
			return created, storageErr("查询打卡失败", err)
		}
		report := s.cmp.CompareDay(day, shifts[id], service.DomainPunches(rows, s.logger))
		n, err := s.persistReport(ctx, id, report, detectedBy)
		created += n
		if err != nil {
			return created, err
		}
		checked++
	}

	if checked > 0 {
		s.logger.Info("班次结束检查完成",
			zap.String("business_date", day.Format("2006-01-02")),
			zap.String("detected_by", detectedBy),
			zap.Int("checked", checked),
			zap.Int("created", created))
	}
	return created, nil
}

func (s *Scheduler) persistReport(ctx context.Context, employeeID int64, report attendance.DayReport, detectedBy string) (int, error) {
	created := 0
	for _, d := range report.Discrepancies {
		if !d.Persistable() {
			continue
		}
		details := autoDetails(detectedBy)
		if d.PlannedValue != "" {
			details["planned_value"] = d.PlannedValue
		}
		if d.ActualValue != "" {
			details["actual_value"] = d.ActualValue
		}
		if d.SegmentIndex > 0 {
			details["segment_index"] = d.SegmentIndex
		}
		details["delta_minutes"] = d.DeltaMinutes
		details["ecart_minutes"] = d.EcartMinutes

		ok, err := s.anomalies.Record(ctx, &service.AnomalyRecord{
			EmployeeID:  employeeID,
			Date:        report.Date,
			Type:        d.Type,
			Severity:    d.Severity,
			Description: d.Description,
			Details:     details,
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// ── 未匹配打卡 ──

type shiftAnchor struct {
	day   time.Time
	start int
}

// sweepUnmatched 昨日与今日的到达打卡若在容差内找不到任何工作排班，记为 pointage_hors_planning
func (s *Scheduler) sweepUnmatched(ctx context.Context, now time.Time) (int, error) {
	today := s.norm.CalendarDay(now)
	yesterday := today.AddDate(0, 0, -1)

	punches, err := s.punchesByEmployee(ctx, s.norm.Instant(yesterday, 0), s.norm.Instant(today, 24*60))
	if err != nil || len(punches) == 0 {
		return 0, err
	}
	ids := slices.Sorted(maps.Keys(punches))
	eligible, err := s.eligible(ctx, ids)
	if err != nil {
		return 0, err
	}
	shifts, err := s.shiftsByEmployee(ctx, yesterday, today)
	if err != nil {
		return 0, err
	}

	tolerance := s.cfg.UnmatchedToleranceMinutes
	created := 0
	for _, id := range ids {
		if _, ok := eligible[id]; !ok {
			continue
		}
		var anchors []shiftAnchor
		for _, sh := range shifts[id] {
			if sh.Kind != attendance.ShiftWork {
				continue
			}
			if start, ok := firstMandatoryStart(sh.Segments); ok {
				anchors = append(anchors, shiftAnchor{day: sh.Date, start: start})
			}
		}

		ps := punches[id]
		for i, p := range ps {
			if p.Direction != attendance.Arrival || s.nearAnchor(p.At, anchors, tolerance) {
				continue
			}

			worked := workedAfter(ps, i)
			details := autoDetails(detectedByUnmatched)
			details["arrival"] = s.norm.ClockString(p.At)
			details["worked_hours"] = worked
			details["punches"] = s.punchSummary(ps)

			ok, err := s.anomalies.Record(ctx, &service.AnomalyRecord{
				EmployeeID:  id,
				Date:        s.norm.CalendarDay(p.At),
				Type:        attendance.TypePointageHorsPlanning,
				Severity:    attendance.SeverityAttention,
				Description: fmt.Sprintf("Pointage hors planning: %sh travaillées sans shift prévu", worked.String()),
				Details:     details,
			})
			if err != nil {
				return created, err
			}
			if ok {
				created++
				s.logger.Info("检测到无排班打卡",
					zap.Int64("employee_id", id),
					zap.String("arrival", s.norm.ClockString(p.At)))
			}
		}
	}
	return created, nil
}

func (s *Scheduler) nearAnchor(at time.Time, anchors []shiftAnchor, tolerance int) bool {
	for _, a := range anchors {
		d := s.norm.MinutesFrom(a.day, at) - a.start
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			return true
		}
	}
	return false
}

// ── 仍在岗 ──

// sweepStillClockedIn 到达多于离开且排班已结束一段时间，记为 missing_out_prolonge，超时更久时升级
func (s *Scheduler) sweepStillClockedIn(ctx context.Context, day time.Time, minutes int) (int, error) {
	from, to := s.norm.BusinessDayBounds(day, s.closeout)
	open, err := s.openEmployees(ctx, from, to)
	if err != nil || len(open) == 0 {
		return 0, err
	}
	shifts, err := s.shiftsByEmployee(ctx, day)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, id := range slices.Sorted(maps.Keys(open)) {
		end, ok := lastMandatoryEnd(shifts[id])
		if !ok {
			continue
		}
		after := minutes - end
		if after < s.cfg.StillClockedInAfterMinutes {
			continue
		}
		severity := attendance.SeverityMoyenne
		if after > s.cfg.StillClockedInEscalateMinutes {
			severity = attendance.SeverityHaute
		}

		lastArrival := open[id]
		openMinutes := minutes - s.norm.MinutesFrom(day, lastArrival)
		overtime := attendance.Hours(after)
		desc := fmt.Sprintf("Sortie non pointée: en cours depuis %sh (fin prévue %s, %sh sup potentielles)",
			attendance.Hours(openMinutes).String(), attendance.FormatMinutes(end), overtime.String())

		details := autoDetails(detectedByTick)
		details["planned_end"] = attendance.FormatMinutes(end)
		details["last_arrival"] = s.norm.ClockString(lastArrival)
		details["open_minutes"] = openMinutes
		details["minutes_after_end"] = after
		details["overtime_hours"] = overtime

		ok, escalated, err := s.anomalies.RecordOrEscalate(ctx, &service.AnomalyRecord{
			EmployeeID:  id,
			Date:        day,
			Type:        attendance.TypeMissingOutProlonge,
			Severity:    severity,
			Description: desc,
			Details:     details,
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
		if ok || escalated {
			s.logger.Warn("员工下班后仍未打离开卡",
				zap.Int64("employee_id", id),
				zap.String("planned_end", attendance.FormatMinutes(end)),
				zap.Int("minutes_after_end", after),
				zap.String("severity", string(severity)))
		}
	}
	return created, nil
}

// ── 日终结算 ──

// closeoutDay 结算已结束的营业日：仍未打离开卡的员工记为 cloture_auto_journee
func (s *Scheduler) closeoutDay(ctx context.Context, day time.Time) (int, error) {
	from, to := s.norm.BusinessDayBounds(day, s.closeout)
	open, err := s.openEmployees(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		s.logger.Info("日终结算：无需结算", zap.String("business_date", day.Format("2006-01-02")))
		return 0, nil
	}
	shifts, err := s.shiftsByEmployee(ctx, day)
	if err != nil {
		return 0, err
	}

	cutoff := 24*60 + s.closeout*60
	created := 0
	for _, id := range slices.Sorted(maps.Keys(open)) {
		plannedEnd, unaccounted := cutoff, 0
		if end, ok := lastMandatoryEnd(shifts[id]); ok {
			plannedEnd = end
			if end < cutoff {
				unaccounted = cutoff - end
			}
		}
		hours := attendance.Hours(unaccounted)
		desc := fmt.Sprintf("Clôture automatique: sortie jamais pointée (fin prévue %s, %sh de travail non comptabilisées)",
			attendance.FormatMinutes(plannedEnd), hours.String())

		details := autoDetails(detectedByCloseout)
		details["planned_end"] = attendance.FormatMinutes(plannedEnd)
		details["last_arrival"] = s.norm.ClockString(open[id])
		details["unaccounted_hours"] = hours

		ok, err := s.anomalies.Record(ctx, &service.AnomalyRecord{
			EmployeeID:  id,
			Date:        day,
			Type:        attendance.TypeClotureAutoJournee,
			Severity:    attendance.SeverityHaute,
			Description: desc,
			Details:     details,
		})
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	s.logger.Info("日终结算完成",
		zap.String("business_date", day.Format("2006-01-02")),
		zap.Int("open", len(open)),
		zap.Int("created", created))
	return created, nil
}

// ── 公共查询 ──

// openEmployees 区间内到达多于离开的可巡检员工，值为最后一次到达时刻
func (s *Scheduler) openEmployees(ctx context.Context, from, to time.Time) (map[int64]time.Time, error) {
	punches, err := s.punchesByEmployee(ctx, from, to)
	if err != nil || len(punches) == 0 {
		return nil, err
	}
	eligible, err := s.eligible(ctx, slices.Sorted(maps.Keys(punches)))
	if err != nil {
		return nil, err
	}

	open := make(map[int64]time.Time)
	for id, ps := range punches {
		if _, ok := eligible[id]; !ok {
			continue
		}
		arrivals, departures := attendance.CountDirections(ps)
		if arrivals <= departures {
			continue
		}
		for i := len(ps) - 1; i >= 0; i-- {
			if ps[i].Direction == attendance.Arrival {
				open[id] = ps[i].At
				break
			}
		}
	}
	return open, nil
}

// punchesByEmployee 按员工分组并去重的打卡
func (s *Scheduler) punchesByEmployee(ctx context.Context, from, to time.Time) (map[int64][]attendance.Punch, error) {
	rows, err := s.repo.Punch.ListBetween(ctx, from, to)
	if err != nil {
		return nil, storageErr("查询打卡失败", err)
	}
	grouped := make(map[int64][]attendance.Punch)
	for _, p := range service.DomainPunches(rows, s.logger) {
		grouped[p.EmployeeID] = append(grouped[p.EmployeeID], p)
	}
	window := s.cmp.Config().DedupWindow
	for id, ps := range grouped {
		grouped[id] = attendance.Dedup(ps, window)
	}
	return grouped, nil
}

// shiftsByEmployee 指定日期的全部排班，按员工分组
func (s *Scheduler) shiftsByEmployee(ctx context.Context, dates ...time.Time) (map[int64][]attendance.Shift, error) {
	rows, err := s.repo.Shift.ListByDates(ctx, dates...)
	if err != nil {
		return nil, storageErr("查询排班失败", err)
	}
	out := make(map[int64][]attendance.Shift)
	for i := range rows {
		sh, err := rows[i].Domain()
		if err != nil {
			s.logger.Warn("排班记录无效，已忽略", zap.Int64("shift_id", rows[i].ID), zap.Error(err))
			continue
		}
		out[sh.EmployeeID] = append(out[sh.EmployeeID], sh)
	}
	return out, nil
}

// eligible 过滤离职员工与忽略角色
func (s *Scheduler) eligible(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	list, err := s.repo.Employee.ListByIDs(ctx, ids)
	if err != nil {
		return nil, storageErr("查询员工失败", err)
	}
	out := make(map[int64]struct{}, len(list))
	for i := range list {
		e := &list[i]
		if !e.Active() {
			continue
		}
		if _, skip := s.ignored[e.Role]; skip {
			continue
		}
		out[e.ID] = struct{}{}
	}
	return out, nil
}

func (s *Scheduler) punchSummary(ps []attendance.Punch) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = s.norm.ClockString(p.At) + " " + string(p.Direction)
	}
	return out
}

// ── 辅助函数 ──

func autoDetails(detectedBy string) model.JSONMap {
	return model.JSONMap{
		"detected_automatically": true,
		"detected_by":            detectedBy,
	}
}

func storageErr(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", pkgerrors.ErrStorageUnavailable, msg, err)
}

// lastMandatoryEnd 工作排班中最晚结束的工作时段（分钟，跨午夜已 +1440）
func lastMandatoryEnd(shifts []attendance.Shift) (int, bool) {
	end, found := 0, false
	for _, sh := range shifts {
		if sh.Kind != attendance.ShiftWork {
			continue
		}
		planned, _ := attendance.PrepareSegments(sh.Segments)
		for _, p := range planned {
			if p.Mandatory() && (!found || p.End > end) {
				end, found = p.End, true
			}
		}
	}
	return end, found
}

func firstMandatoryStart(segments []attendance.Segment) (int, bool) {
	planned, _ := attendance.PrepareSegments(segments)
	start, found := 0, false
	for _, p := range planned {
		if p.Mandatory() && (!found || p.Start < start) {
			start, found = p.Start, true
		}
	}
	return start, found
}

// workedAfter 第 i 次到达到其后第一次离开之间的小时数
func workedAfter(ps []attendance.Punch, i int) decimal.Decimal {
	for j := i + 1; j < len(ps); j++ {
		if ps[j].Direction == attendance.Departure {
			return attendance.HoursBetween(ps[i].At, ps[j].At)
		}
	}
	return decimal.Zero
}
