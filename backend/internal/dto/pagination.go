package dto

const (
	defaultPageSize = 50
	maxPageSize     = 200 // 薪资导出按页拉取异常，单页上限放宽
)

// PaginationRequest 分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// GetPage 页码，缺省为 1
func (p *PaginationRequest) GetPage() int {
	return max(p.Page, 1)
}

// GetPageSize 每页数量，缺省 50，超过上限时截断
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	return min(p.PageSize, maxPageSize)
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
