package attendance

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/config"
)

// Config 比对流水线参数
type Config struct {
	IntraDayCutoffHour    int
	DedupWindow           time.Duration
	PairWindow            time.Duration
	PartialMatchTolerance int // 分钟
	Arrival               ArrivalThresholds
	Departure             DepartureThresholds
	Redundancy            RedundancyThresholds
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		IntraDayCutoffHour:    5,
		DedupWindow:           2 * time.Minute,
		PairWindow:            10 * time.Minute,
		PartialMatchTolerance: 120,
		Arrival:               ArrivalThresholds{EarlyHorsPlage: 30, RetardAcceptable: -5, RetardModere: -20},
		Departure: DepartureThresholds{
			PrematureCritique:     30,
			Anticipe:              15,
			HeuresSupAutoValidees: -30,
			HeuresSupAValider:     -90,
		},
		Redundancy: RedundancyThresholds{HighOverlapRatio: 0.8, LowOverlapRatio: 0.5, QuarterStepMinutes: 15},
	}
}

// ConfigFrom 从应用配置构建流水线参数
func ConfigFrom(c *config.AttendanceConfig) Config {
	return Config{
		IntraDayCutoffHour:    c.IntraDayCutoffHour,
		DedupWindow:           c.DedupWindow,
		PairWindow:            c.PairWindow,
		PartialMatchTolerance: c.PartialMatchToleranceMinutes,
		Arrival: ArrivalThresholds{
			EarlyHorsPlage:   c.Arrival.EarlyHorsPlage,
			RetardAcceptable: c.Arrival.RetardAcceptable,
			RetardModere:     c.Arrival.RetardModere,
		},
		Departure: DepartureThresholds{
			PrematureCritique:     c.Departure.PrematureCritique,
			Anticipe:              c.Departure.Anticipe,
			HeuresSupAutoValidees: c.Departure.HeuresSupAutoValidees,
			HeuresSupAValider:     c.Departure.HeuresSupAValider,
		},
		Redundancy: RedundancyThresholds{
			HighOverlapRatio:   c.Redundancy.HighOverlapRatio,
			LowOverlapRatio:    c.Redundancy.LowOverlapRatio,
			QuarterStepMinutes: c.Redundancy.QuarterStepMinutes,
		},
	}
}

// Comparator 单个营业日的 去重→配对→匹配→分级 流水线，无状态，可并发使用
type Comparator struct {
	norm   *Normalizer
	cfg    Config
	logger *zap.Logger
}

// NewComparator 创建 Comparator，logger 为 nil 时不输出日志
func NewComparator(norm *Normalizer, cfg Config, logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{norm: norm, cfg: cfg, logger: logger}
}

// Normalizer 返回使用的时间换算器
func (c *Comparator) Normalizer() *Normalizer { return c.norm }

// Config 返回流水线参数
func (c *Comparator) Config() Config { return c.cfg }

// CompareDay 比对某员工一个营业日的排班与打卡。
// punches 可包含营业日之外的记录，按日内切换点界定的区间过滤。
func (c *Comparator) CompareDay(day time.Time, shifts []Shift, punches []Punch) DayReport {
	day = DateOnly(day)
	report := DayReport{Date: day}

	from, to := c.norm.BusinessDayBounds(day, c.cfg.IntraDayCutoffHour)
	inDay := make([]Punch, 0, len(punches))
	for _, p := range punches {
		if !p.At.Before(from) && p.At.Before(to) {
			inDay = append(inDay, p)
		}
	}
	cleaned := Dedup(inDay, c.cfg.DedupWindow)
	report.Sessions = Pair(cleaned, c.cfg.PairWindow)

	var (
		segments   []Segment
		hasWork    bool
		absence    bool
		reason     string
		employeeID int64
	)
	for _, sh := range shifts {
		employeeID = sh.EmployeeID
		switch sh.Kind {
		case ShiftAbsence:
			absence = true
			if reason == "" {
				reason = sh.Reason
			}
		default:
			hasWork = true
			segments = append(segments, sh.Segments...)
		}
	}

	prepared, issues := PrepareSegments(segments)
	for _, is := range issues {
		c.logger.Warn("计划时段无效，已忽略",
			zap.Int64("employee_id", employeeID),
			zap.String("date", day.Format("2006-01-02")),
			zap.Int("position", is.Position),
			zap.Error(is.Err))
	}
	planned, dropped := FilterRedundant(prepared, c.cfg.Redundancy)
	if len(dropped) > 0 {
		c.logger.Debug("过滤冗余时段",
			zap.Int64("employee_id", employeeID),
			zap.String("date", day.Format("2006-01-02")),
			zap.Int("dropped", len(dropped)))
	}
	report.Planned = planned

	hasPunch := len(cleaned) > 0

	// ── 日级别特例 ──
	if absence && !hasWork {
		if hasPunch {
			report.Discrepancies = []Discrepancy{{
				Type:        TypeAbsencePlanifieeAvecPointage,
				Severity:    SeverityCritique,
				ActualValue: c.norm.ClockString(cleaned[0].At),
				Description: withReason("Pointage enregistré pendant une absence planifiée", reason),
			}}
		} else {
			report.Discrepancies = []Discrepancy{{
				Type:        TypeAbsenceConforme,
				Severity:    SeverityInfo,
				Description: withReason("Absence planifiée respectée", reason),
			}}
		}
		return report
	}

	if !hasPunch {
		if lo, hi, ok := mandatoryRange(planned); ok {
			report.Discrepancies = []Discrepancy{{
				Type:         TypeAbsenceTotale,
				Severity:     SeverityCritique,
				PlannedValue: FormatMinutes(lo) + "-" + FormatMinutes(hi),
				Description:  fmt.Sprintf("Absence totale: aucun pointage pour le planning %s-%s", FormatMinutes(lo), FormatMinutes(hi)),
			}}
		}
		return report
	}

	if len(planned) == 0 {
		report.Discrepancies = []Discrepancy{{
			Type:        TypePresenceNonPrevue,
			Severity:    SeverityAttention,
			ActualValue: c.norm.ClockString(cleaned[0].At),
			Description: fmt.Sprintf("Présence non prévue: %d pointage(s) sans planning", len(cleaned)),
		}}
		return report
	}

	report.Discrepancies = c.compareSegments(day, planned, report.Sessions)
	return report
}

func (c *Comparator) compareSegments(day time.Time, planned []PlannedSegment, sessions []Session) []Discrepancy {
	spans := make([]Span, len(sessions))
	for i, s := range sessions {
		sp := Span{Index: i}
		if s.Arrival != nil {
			sp.Arrival, sp.HasArrival = c.norm.MinutesFrom(day, *s.Arrival), true
		}
		if s.Departure != nil {
			sp.Departure, sp.HasDeparture = c.norm.MinutesFrom(day, *s.Departure), true
		}
		spans[i] = sp
	}

	res := Match(planned, spans)
	var out []Discrepancy
	for _, p := range res.Pairs {
		out = append(out,
			arrivalDiscrepancy(p.Segment, p.Span.Arrival, c.cfg.Arrival),
			departureDiscrepancy(p.Segment, p.Span.Departure, c.cfg.Departure))
	}

	partialUsed := make([]bool, len(spans))
	for _, seg := range res.UnmatchedSegments {
		if !seg.Mandatory() {
			continue
		}
		in := c.nearestPartial(spans, partialUsed, seg.Start, Span.arrivalOnly)
		outIdx := c.nearestPartial(spans, partialUsed, seg.End, Span.orphan)
		switch {
		case in < 0 && outIdx < 0:
			out = append(out, Discrepancy{
				Type:         TypeSegmentNonPointe,
				Severity:     SeverityCritique,
				PlannedValue: FormatMinutes(seg.Start) + "-" + FormatMinutes(seg.End),
				SegmentIndex: seg.Index,
				Description:  fmt.Sprintf("Segment %d non pointé (%s-%s)", seg.Index, FormatMinutes(seg.Start), FormatMinutes(seg.End)),
			})
		case outIdx < 0:
			partialUsed[in] = true
			out = append(out,
				arrivalDiscrepancy(seg, spans[in].Arrival, c.cfg.Arrival),
				Discrepancy{
					Type:         TypeMissingOut,
					Severity:     SeverityCritique,
					PlannedValue: FormatMinutes(seg.End),
					SegmentIndex: seg.Index,
					Description:  fmt.Sprintf("Pointage de sortie manquant (segment %d, fin prévue %s)", seg.Index, FormatMinutes(seg.End)),
				})
		case in < 0:
			partialUsed[outIdx] = true
			out = append(out,
				Discrepancy{
					Type:         TypeMissingIn,
					Severity:     SeverityCritique,
					PlannedValue: FormatMinutes(seg.Start),
					SegmentIndex: seg.Index,
					Description:  fmt.Sprintf("Pointage d'entrée manquant (segment %d, début prévu %s)", seg.Index, FormatMinutes(seg.Start)),
				},
				departureDiscrepancy(seg, spans[outIdx].Departure, c.cfg.Departure))
		default:
			partialUsed[in], partialUsed[outIdx] = true, true
			out = append(out,
				arrivalDiscrepancy(seg, spans[in].Arrival, c.cfg.Arrival),
				departureDiscrepancy(seg, spans[outIdx].Departure, c.cfg.Departure))
		}
	}

	for _, sp := range res.UnmatchedSpans {
		out = append(out, Discrepancy{
			Type:         TypePointageHorsPlanning,
			Severity:     SeverityAttention,
			ActualValue:  FormatMinutes(sp.Arrival) + "-" + FormatMinutes(sp.Departure),
			DeltaMinutes: sp.Departure - sp.Arrival,
			Description:  fmt.Sprintf("Pointage hors planning (%s-%s)", FormatMinutes(sp.Arrival), FormatMinutes(sp.Departure)),
		})
	}
	return out
}

// nearestPartial 在容差内寻找最接近 target 的不完整会话
func (c *Comparator) nearestPartial(spans []Span, used []bool, target int, want func(Span) (int, bool)) int {
	best, bestDist := -1, 0
	for i, sp := range spans {
		if used[i] {
			continue
		}
		v, ok := want(sp)
		if !ok {
			continue
		}
		d := abs(v - target)
		if d > c.cfg.PartialMatchTolerance {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (s Span) arrivalOnly() (int, bool) { return s.Arrival, s.HasArrival && !s.HasDeparture }

func (s Span) orphan() (int, bool) { return s.Departure, s.HasDeparture && !s.HasArrival }

func mandatoryRange(planned []PlannedSegment) (lo, hi int, ok bool) {
	for _, p := range planned {
		if !p.Mandatory() {
			continue
		}
		if !ok || p.Start < lo {
			lo = p.Start
		}
		if !ok || p.End > hi {
			hi = p.End
		}
		ok = true
	}
	return lo, hi, ok
}

func withReason(msg, reason string) string {
	if reason == "" {
		return msg
	}
	return msg + " (" + reason + ")"
}
