package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/dto"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/internal/service"
	pkgerrors "github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/errors"
	"github.com/Yamine-coder/gestion-rh-sub006/backend/pkg/response"
)

// ComparisonHandler 计划/实际比对 HTTP 处理器
type ComparisonHandler struct {
	svc service.ComparisonService
}

// NewComparisonHandler 创建 ComparisonHandler
func NewComparisonHandler(svc service.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{svc: svc}
}

// Compare 按需比对（只读）
// GET /api/v1/comparisons?employee_id=&date= 或 &date_from=&date_to=
func (h *ComparisonHandler) Compare(c *gin.Context) {
	var req dto.ComparisonRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	self, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	// 普通员工只能查询本人；格式错误交由 Service 返回 400
	if id, err := service.ParseEmployeeID(req.EmployeeID); err == nil && id != self && !isReader(role) {
		response.Forbidden(c, 10003, "只能查询本人的考勤比对")
		return
	}

	resp, err := h.svc.Compare(c.Request.Context(), &req)
	if err != nil {
		handleComparisonError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleComparisonError 统一比对模块错误映射
func handleComparisonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmployeeID):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20001, "员工 ID 无效", err.Error())
	case errors.Is(err, service.ErrInvalidDate):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20002, "日期格式无效", err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20003, "日期范围无效", err.Error())
	case errors.Is(err, service.ErrDateRangeTooLarge):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20004, "日期范围超出上限", err.Error())
	case errors.Is(err, service.ErrEmployeeNotFound):
		response.NotFound(c, 20005, "员工不存在")
	case errors.Is(err, service.ErrComparisonFailed), errors.Is(err, pkgerrors.ErrStorageUnavailable):
		response.ServiceUnavailable(c, 20006, "数据暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
