package dto

import "github.com/shopspring/decimal"

// ── 计划/实际比对 ──

// ComparisonRequest 按需比对查询参数：date 与 date_from/date_to 二选一
type ComparisonRequest struct {
	EmployeeID string `form:"employee_id" binding:"required"`
	Date       string `form:"date"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
}

// ComparisonResponse 比对结果，按日期升序
type ComparisonResponse struct {
	EmployeeID int64           `json:"employee_id"`
	DateFrom   string          `json:"date_from"`
	DateTo     string          `json:"date_to"`
	Days       []DayComparison `json:"days"`
}

// DayComparison 单个营业日的比对结果
type DayComparison struct {
	Date          string               `json:"date"`
	Planned       []PlannedSegmentItem `json:"planned"`
	Actual        []SessionItem        `json:"actual"`
	Discrepancies []DiscrepancyItem    `json:"discrepancies"`
	WorkedHours   decimal.Decimal      `json:"worked_hours"`
}

// PlannedSegmentItem 计划时段
type PlannedSegmentItem struct {
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// SessionItem 实际会话（本地时间 HH:MM）
type SessionItem struct {
	Arrival   *string `json:"arrival"`
	Departure *string `json:"departure"`
}

// DiscrepancyItem 比对偏差
type DiscrepancyItem struct {
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	PlannedValue string `json:"planned_value,omitempty"`
	ActualValue  string `json:"actual_value,omitempty"`
	DeltaMinutes int    `json:"delta_minutes"`
	EcartMinutes int    `json:"ecart_minutes"`
	SegmentIndex int    `json:"segment_index,omitempty"`
	Description  string `json:"description"`
}
