package dto

// ── 考勤异常 ──

// AnomalyListRequest 异常列表查询参数
type AnomalyListRequest struct {
	PaginationRequest
	EmployeeID string `form:"employee_id"`
	DateFrom   string `form:"date_from"`
	DateTo     string `form:"date_to"`
	Type       string `form:"type"`
	Status     string `form:"status" binding:"omitempty,oneof=en_attente resolue"`
}

// AnomalyResponse 异常记录
type AnomalyResponse struct {
	ID           int64                  `json:"id"`
	EmployeeID   int64                  `json:"employee_id"`
	BusinessDate string                 `json:"business_date"`
	Type         string                 `json:"type"`
	Severity     string                 `json:"severity"`
	Description  string                 `json:"description"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Status       string                 `json:"status"`
	ResolvedAt   *string                `json:"resolved_at,omitempty"`
	CreatedAt    string                 `json:"created_at"`
}
