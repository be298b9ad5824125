package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/response"
)

// SchedulerHandler 调度器状态查询
type SchedulerHandler struct {
	status SchedulerStatus
}

// NewSchedulerHandler 创建 SchedulerHandler，status 为 nil 表示调度器未启用
func NewSchedulerHandler(status SchedulerStatus) *SchedulerHandler {
	return &SchedulerHandler{status: status}
}

// GetStatus 最近一次巡检时间、结果与计数
// GET /api/v1/scheduler/status
func (h *SchedulerHandler) GetStatus(c *gin.Context) {
	if h.status == nil {
		response.OK(c, gin.H{"enabled": false})
		return
	}
	response.OK(c, gin.H{"enabled": true, "status": h.status.Status()})
}
