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

// AnomalyHandler 考勤异常 HTTP 处理器（供薪资、通知等下游读取）
type AnomalyHandler struct {
	svc service.AnomalyService
}

// NewAnomalyHandler 创建 AnomalyHandler
func NewAnomalyHandler(svc service.AnomalyService) *AnomalyHandler {
	return &AnomalyHandler{svc: svc}
}

// ListAnomalies 异常列表
// GET /api/v1/anomalies
func (h *AnomalyHandler) ListAnomalies(c *gin.Context) {
	var req dto.AnomalyListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), &req)
	if err != nil {
		handleAnomalyError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

func handleAnomalyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmployeeID):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21001, "员工 ID 无效", err.Error())
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrInvalidDateRange):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21002, "日期参数无效", err.Error())
	case errors.Is(err, pkgerrors.ErrStorageUnavailable):
		response.ServiceUnavailable(c, 21003, "数据暂不可用，请稍后重试")
	default:
		response.InternalError(c)
	}
}
