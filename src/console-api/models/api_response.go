package models

// ApiResponse is the JSON envelope shared by every console endpoint.
type ApiResponse struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data"`
}

// PageData is the payload of paginated list endpoints.
type PageData struct {
	Items      interface{} `json:"items"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int64       `json:"total"`
	TotalPages int64       `json:"total_pages"`
}

func NewPageData(items interface{}, page, pageSize int, total int64) *PageData {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return &PageData{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}
