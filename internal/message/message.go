// Package message 是“扩展消息通道”的进程内版本：按消息类型分发请求，并保证每个请求恰好应答一次。
//
// 约束：
// - handler 要么同步给出结果（Now），要么声明稍后应答（Later）并在之后调用 Respond
// - 同一请求的第二次应答被忽略（记录日志），不会覆盖第一次
// - handler 既没应答也没声明 Later：调用方得到 ErrPortClosed
package message

import (
	"context"
	"encoding/json"
	"errors"
)

// TypeSearchMatter 是搜索请求的消息类型。
const TypeSearchMatter = "SEARCH_MATTER"

var (
	// ErrNoHandler 表示没有 handler 认领该消息类型。
	ErrNoHandler = errors.New("message: no handler for type")
	// ErrPortClosed 表示 handler 在没有应答的情况下结束了（对应“消息端口已关闭”）。
	ErrPortClosed = errors.New("message: port closed before a response was received")
)

// Request 是一条入站消息。Body 保留原始 JSON，便于 handler 解析自己的字段。
type Request struct {
	Type  string          `json:"type"`
	Query string          `json:"query,omitempty"`
	Body  json.RawMessage `json:"-"`
}

// Respond 发送应答；返回 false 表示该请求已经应答过。
type Respond func(v any) bool

// Reply 是 handler 的返回：立即结果，或“稍后应答”的承诺。
type Reply struct {
	later   bool
	value   any
	present bool
}

// Now 表示同步结果。
func Now(v any) Reply { return Reply{value: v, present: true} }

// Later 表示 handler 会在之后调用 Respond。
func Later() Reply { return Reply{later: true} }

// None 表示 handler 不应答（调用方会得到 ErrPortClosed）。
func None() Reply { return Reply{} }

func (r Reply) IsLater() bool { return r.later }

// Handler 处理一种消息类型。ctx 在调用方放弃等待时结束。
type Handler func(ctx context.Context, req Request, respond Respond) Reply
