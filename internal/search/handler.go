package search

import (
	"context"

	"github.com/John-Robertt/cardfinder/internal/message"
)

// Poster 把任务投递到事件循环。
type Poster interface {
	Post(task func()) bool
}

// Handler 返回 SEARCH_MATTER 的消息 handler：把搜索投递到事件循环，稍后应答。
// 循环已退出时不应答，调用方得到 message.ErrPortClosed。
func (s *Service) Handler(loop Poster) message.Handler {
	return func(_ context.Context, req message.Request, respond message.Respond) message.Reply {
		if !loop.Post(func() { respond(s.Search(req.Query)) }) {
			return message.None()
		}
		return message.Later()
	}
}
