package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
)

// ErrUnknownKind 排班/时段/打卡类型不在允许范围内
var ErrUnknownKind = errors.New("未知类型")

// Shift 排班表，对应 shifts（由排班模块维护，本服务只读）
type Shift struct {
	ID         int64     `gorm:"primaryKey"                  json:"id"`
	EmployeeID int64     `gorm:"not null;index"              json:"employee_id"`
	Date       time.Time `gorm:"type:date;not null;index"    json:"date"`
	Kind       string    `gorm:"type:varchar(20);not null"   json:"kind"` // travail | absence
	Reason     *string   `gorm:"type:varchar(255)"           json:"reason,omitempty"`
	BaseModel

	// 关联
	Segments []ShiftSegment `gorm:"foreignKey:ShiftID;references:ID" json:"segments,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// ShiftSegment 排班时段表，对应 shift_segments
type ShiftSegment struct {
	ID        int64   `gorm:"primaryKey"                json:"id"`
	ShiftID   int64   `gorm:"not null;index"            json:"shift_id"`
	Position  int     `gorm:"not null;default:0"        json:"position"`
	Kind      string  `gorm:"type:varchar(20);not null" json:"kind"` // travail | pause | extra
	StartTime *string `gorm:"type:time"                 json:"start_time,omitempty"`
	EndTime   *string `gorm:"type:time"                 json:"end_time,omitempty"`
}

// TableName 指定表名
func (ShiftSegment) TableName() string { return "shift_segments" }

// Domain 转换为比对领域对象，类型未知时返回 ErrUnknownKind。
// 缺少起止时间的时段原样保留，由比对流水线丢弃并记录。
func (s *Shift) Domain() (attendance.Shift, error) {
	kind := attendance.ShiftKind(s.Kind)
	if kind != attendance.ShiftWork && kind != attendance.ShiftAbsence {
		return attendance.Shift{}, fmt.Errorf("%w: 排班 %d 类型 %q", ErrUnknownKind, s.ID, s.Kind)
	}
	out := attendance.Shift{
		EmployeeID: s.EmployeeID,
		Date:       attendance.DateOnly(s.Date),
		Kind:       kind,
		Segments:   make([]attendance.Segment, 0, len(s.Segments)),
	}
	if s.Reason != nil {
		out.Reason = *s.Reason
	}
	for _, seg := range s.Segments {
		sk := attendance.SegmentKind(seg.Kind)
		if !sk.Valid() {
			return attendance.Shift{}, fmt.Errorf("%w: 时段 %d 类型 %q", ErrUnknownKind, seg.ID, seg.Kind)
		}
		d := attendance.Segment{Kind: sk}
		if seg.StartTime != nil {
			d.Start = *seg.StartTime
		}
		if seg.EndTime != nil {
			d.End = *seg.EndTime
		}
		out.Segments = append(out.Segments, d)
	}
	return out, nil
}

// [自证通过] internal/model/shift.go
