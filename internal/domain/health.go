package domain

// Health 是 GET /health 的响应体（客户端也用它判断是否在看板页面上）。
type Health struct {
	Status  string `json:"status"`
	PageURL string `json:"page_url"`
	Ready   bool   `json:"ready"`
	Cards   int    `json:"cards"`
}
