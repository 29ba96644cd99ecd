package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok")), Header: http.Header{}}
}

func TestTransport_RetriesGETOnConnError(t *testing.T) {
	calls := 0
	tr := &Transport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("connection refused")
			}
			return okResponse(), nil
		}),
		RetryMax: 2,
	}

	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/health", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if calls != 3 {
		t.Fatalf("期望 3 次尝试，实际 %d", calls)
	}
}

func TestTransport_GivesUpAfterRetryMax(t *testing.T) {
	calls := 0
	tr := &Transport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection refused")
		}),
		RetryMax: 2,
	}

	req, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/health", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if calls != 3 {
		t.Fatalf("RetryMax=2 时最多 3 次尝试，实际 %d", calls)
	}
}

func TestTransport_NeverRetriesPOST(t *testing.T) {
	calls := 0
	tr := &Transport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("connection reset")
		}),
		RetryMax: 5,
	}

	req, _ := http.NewRequest(http.MethodPost, "http://127.0.0.1:1/api/v1/messages", strings.NewReader(`{}`))
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if calls != 1 {
		t.Fatalf("POST 不应重试，实际尝试 %d 次", calls)
	}
}

func TestTransport_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	tr := &Transport{
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			cancel()
			return nil, errors.New("connection refused")
		}),
		RetryMax: 5,
		Backoff:  time.Hour,
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1/health", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if calls != 1 {
		t.Fatalf("ctx 取消后不应继续重试，实际 %d 次", calls)
	}
}

func TestTransport_SetsUserAgentUnlessPresent(t *testing.T) {
	var got []string
	tr := &Transport{
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			got = append(got, r.Header.Get("User-Agent"))
			return okResponse(), nil
		}),
		UserAgent: UserAgent,
	}

	req1, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/", nil)
	req2, _ := http.NewRequest(http.MethodGet, "http://127.0.0.1:1/", nil)
	req2.Header.Set("User-Agent", "custom")
	for _, r := range []*http.Request{req1, req2} {
		resp, err := tr.RoundTrip(r)
		if err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
		resp.Body.Close()
	}

	if got[0] != UserAgent || got[1] != "custom" {
		t.Fatalf("User-Agent 不符合预期：%v", got)
	}
	if req1.Header.Get("User-Agent") != "" {
		t.Fatalf("不应修改调用方的 request header")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(0, -1)
	if c.Timeout != DefaultTimeout {
		t.Fatalf("期望默认超时 %v，实际 %v", DefaultTimeout, c.Timeout)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.RetryMax != DefaultRetryMax {
		t.Fatalf("期望默认重试 %d，实际 %d", DefaultRetryMax, tr.RetryMax)
	}
	base := tr.Base.(*http.Transport)
	if base.Proxy != nil {
		t.Fatalf("本机服务不应走代理")
	}
}
