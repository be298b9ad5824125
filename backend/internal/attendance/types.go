// Package attendance 实现计划排班与实际打卡的比对流水线：
// 时间归一 → 打卡去重 → 配对成会话 → 时段匹配 → 偏差分级。
// 包内函数均无 I/O，可在调度器与按需查询之间安全共享。
package attendance

import "time"

// Direction 打卡方向
type Direction string

const (
	Arrival   Direction = "arrivee"
	Departure Direction = "depart"
)

// ShiftKind 排班类型
type ShiftKind string

const (
	ShiftWork    ShiftKind = "travail"
	ShiftAbsence ShiftKind = "absence"
)

// SegmentKind 排班时段类型
type SegmentKind string

const (
	SegmentWork  SegmentKind = "travail"
	SegmentBreak SegmentKind = "pause"
	SegmentExtra SegmentKind = "extra" // 可选时段，缺勤不告警
)

// Valid 判断时段类型是否合法
func (k SegmentKind) Valid() bool {
	switch k {
	case SegmentWork, SegmentBreak, SegmentExtra:
		return true
	}
	return false
}

// Severity 异常严重程度
type Severity string

const (
	SeverityInfo      Severity = "info"
	SeverityOK        Severity = "ok"
	SeverityAttention Severity = "attention"
	SeverityCritique  Severity = "critique"
	SeverityHorsPlage Severity = "hors_plage"
	SeverityAValider  Severity = "a_valider"
	SeverityMoyenne   Severity = "moyenne"
	SeverityHaute     Severity = "haute"
)

// AnomalyType 异常类型
type AnomalyType string

const (
	// 日级别
	TypeAbsencePlanifieeAvecPointage AnomalyType = "absence_planifiee_avec_pointage"
	TypeAbsenceConforme              AnomalyType = "absence_conforme"
	TypeAbsenceTotale                AnomalyType = "absence_totale"
	TypePresenceNonPrevue            AnomalyType = "presence_non_prevue"

	// 到达
	TypeHorsPlageIn       AnomalyType = "hors_plage_in"
	TypeArriveeAcceptable AnomalyType = "arrivee_acceptable"
	TypeRetardModere      AnomalyType = "retard_modere"
	TypeRetardCritique    AnomalyType = "retard_critique"

	// 离开
	TypeDepartPrematureCritique AnomalyType = "depart_premature_critique"
	TypeDepartAnticipe          AnomalyType = "depart_anticipe"
	TypeDepartAcceptable        AnomalyType = "depart_acceptable"
	TypeHeuresSupAutoValidees   AnomalyType = "heures_sup_auto_validees"
	TypeHeuresSupAValider       AnomalyType = "heures_sup_a_valider"
	TypeHorsPlageOutCritique    AnomalyType = "hors_plage_out_critique"

	// 未匹配
	TypeSegmentNonPointe     AnomalyType = "segment_non_pointe"
	TypeMissingIn            AnomalyType = "missing_in"
	TypeMissingOut           AnomalyType = "missing_out"
	TypePointageHorsPlanning AnomalyType = "pointage_hors_planning"

	// 调度器专用
	TypeMissingOutProlonge AnomalyType = "missing_out_prolonge"
	TypeClotureAutoJournee AnomalyType = "cloture_auto_journee"
)

// Segment 排班中的一个计划时段，Start/End 为 "HH:MM" 墙上时间
type Segment struct {
	Kind  SegmentKind
	Start string
	End   string
}

// Shift 员工某个营业日的排班
type Shift struct {
	EmployeeID int64
	Date       time.Time // 营业日，UTC 零点
	Kind       ShiftKind
	Reason     string // 缺勤原因
	Segments   []Segment
}

// Punch 一次打卡
type Punch struct {
	EmployeeID int64
	At         time.Time
	Direction  Direction
}

// Session 由打卡配对得到的会话，可能只有到达或只有离开
type Session struct {
	Arrival   *time.Time
	Departure *time.Time
}

// Complete 到达与离开均存在
func (s Session) Complete() bool { return s.Arrival != nil && s.Departure != nil }

// ArrivalOnly 仍未离开
func (s Session) ArrivalOnly() bool { return s.Arrival != nil && s.Departure == nil }

// Orphan 没有对应到达的离开打卡
func (s Session) Orphan() bool { return s.Arrival == nil && s.Departure != nil }

// PlannedSegment 校验后的计划时段，Start/End 为相对营业日零点的分钟数，
// 跨午夜时 End 已加 1440
type PlannedSegment struct {
	Index int // 从 1 开始
	Kind  SegmentKind
	Start int
	End   int
}

// Duration 时段时长（分钟）
func (p PlannedSegment) Duration() int { return p.End - p.Start }

// Mandatory 是否为必须出勤的工作时段
func (p PlannedSegment) Mandatory() bool { return p.Kind == SegmentWork }

// Discrepancy 一条比对偏差
type Discrepancy struct {
	Type         AnomalyType
	Severity     Severity
	PlannedValue string
	ActualValue  string
	DeltaMinutes int // 绝对值
	EcartMinutes int // 计划 - 实际，正数表示提前
	SegmentIndex int // 0 表示与具体时段无关
	Description  string
}

// Persistable 是否需要落库为异常记录
func (d Discrepancy) Persistable() bool {
	return d.Severity != SeverityOK && d.Type != TypeAbsenceConforme
}

// DayReport 单个营业日的比对结果
type DayReport struct {
	Date          time.Time
	Planned       []PlannedSegment
	Sessions      []Session
	Discrepancies []Discrepancy
}
