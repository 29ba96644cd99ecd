package domain

import (
	"encoding/json"
)

// 对外消息（与弹窗/客户端之间的稳定契约）。
const (
	MsgEmptyQuery = "Please enter a search query"
	MsgNoCards    = "No cards found on this page. Make sure you're on a board view and the page has finished loading."
)

// SearchResponse 是 SEARCH_MATTER 的响应体。
//
// 约束：Matches 永远序列化为数组（不能是 null）；Message 在有匹配时为 null。
type SearchResponse struct {
	Matches    []Match `json:"matches"`
	TotalCards int     `json:"totalCards"`
	Message    *string `json:"message"`
}

// Match 是单条匹配结果。
type Match struct {
	MatterID    string           `json:"matterID"`
	MatterName  string           `json:"matterName"`
	Title       string           `json:"title"`
	Column      string           `json:"column"`
	FoundMethod ExtractionMethod `json:"foundMethod"`
}

// MatchFromCard 把 Card 投影为对外的 Match（不暴露 DOM 引用）。
func MatchFromCard(c Card) Match {
	return Match{
		MatterID:    string(c.MatterID),
		MatterName:  c.Name,
		Title:       c.Title(),
		Column:      c.Column,
		FoundMethod: c.Method,
	}
}

// MessageText 返回 Message 的值；nil 时为空串。
func (r SearchResponse) MessageText() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

// MarshalJSON 集中约束输出稳定性：nil Matches 输出为 []。
func (r SearchResponse) MarshalJSON() ([]byte, error) {
	type Alias SearchResponse
	a := Alias(r)
	if a.Matches == nil {
		a.Matches = []Match{}
	}
	return json.Marshal(a)
}

// CardView 是调试输出中的卡片（对应控制台里的 testCardFinder）。
type CardView struct {
	MatterID   string           `json:"matterID"`
	MatterName string           `json:"matterName"`
	Column     string           `json:"column"`
	Method     ExtractionMethod `json:"method"`
	Element    string           `json:"element"`
}

func ViewFromCard(c Card) CardView {
	v := CardView{
		MatterID:   string(c.MatterID),
		MatterName: c.Name,
		Column:     c.Column,
		Method:     c.Method,
	}
	if c.Source != nil {
		v.Element = c.Source.Path()
	}
	return v
}

// MatchTrace 是调试 dry-run 的逐卡判定（对应控制台里的 debugSearch）。
// 注意：这里只看编号与名称，不看标题。
type MatchTrace struct {
	Index      int    `json:"index"`
	MatterID   string `json:"matterID"`
	MatterName string `json:"matterName"`
	Column     string `json:"column"`
	IDMatch    bool   `json:"idMatch"`
	NameMatch  bool   `json:"nameMatch"`
	Overall    bool   `json:"overall"`
}
