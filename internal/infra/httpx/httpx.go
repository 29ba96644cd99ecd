// Package httpx 固化 CLI 访问本地 cardfinder 服务时的 HTTP 策略。
package httpx

import (
	"errors"
	"net/http"
	"time"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultRetryMax = 2
	DefaultBackoff  = 200 * time.Millisecond

	// UserAgent 让服务端日志能区分 CLI 与其它调用方。
	UserAgent = "cardfinder-cli"
)

// Transport 把“固定 UA + 有界重试”收敛为统一策略。
//
// 约束：
// - 只对可重放请求（GET/HEAD 且无 body）重试；消息投递是 POST，绝不重发
// - 只重试连接层错误；拿到任何 HTTP 响应都直接返回
// - 第 n 次重试前等待 n*Backoff，ctx 取消立即停止
type Transport struct {
	Base http.RoundTripper

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
	Backoff  time.Duration
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 && t.Backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * t.Backoff)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, lastErr
			case <-timer.C:
			}
		}

		// Clone 避免在 RoundTripper 内部污染调用方的 request。
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// NewClient 构造 CLI 使用的 HTTP client；timeout<=0、retryMax<0 时使用默认值。
func NewClient(timeout time.Duration, retryMax int) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retryMax < 0 {
		retryMax = DefaultRetryMax
	}
	base := &http.Transport{
		// 服务只监听本机，不走环境代理。
		Proxy:                 nil,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       30 * time.Second,
	}
	return &http.Client{
		Transport: &Transport{
			Base:      base,
			UserAgent: UserAgent,
			RetryMax:  retryMax,
			Backoff:   DefaultBackoff,
		},
		Timeout: timeout,
	}
}
