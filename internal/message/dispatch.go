package message

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher 把请求交给注册的 handler，并等待恰好一次的应答。
type Dispatcher struct {
	reg    Registry
	logger *zap.Logger
}

func NewDispatcher(reg Registry, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{reg: reg, logger: logger}
}

// Dispatch 阻塞直到拿到应答、handler 放弃应答，或 ctx 结束。
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	h, ok := d.reg.Get(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, req.Type)
	}

	r := newResponder(d.logger.With(zap.String("type", req.Type)))
	reply := h(ctx, req, r.respond)

	if reply.present {
		r.respond(reply.value)
	}
	if !reply.later {
		if v, ok := r.take(); ok {
			return v, nil
		}
		return nil, ErrPortClosed
	}

	select {
	case v := <-r.ch:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// responder 保证恰好一次：第一次 respond 生效，之后的调用被忽略。
type responder struct {
	once   sync.Once
	ch     chan any
	logger *zap.Logger
}

func newResponder(logger *zap.Logger) *responder {
	return &responder{ch: make(chan any, 1), logger: logger}
}

func (r *responder) respond(v any) bool {
	sent := false
	r.once.Do(func() {
		r.ch <- v
		sent = true
	})
	if !sent {
		r.logger.Warn("duplicate response ignored")
	}
	return sent
}

func (r *responder) take() (any, bool) {
	select {
	case v := <-r.ch:
		return v, true
	default:
		return nil, false
	}
}
