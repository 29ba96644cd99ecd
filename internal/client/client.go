// Package client 是 cardfinder 服务的 HTTP 客户端（CLI 的 search/cards/explain 都经由它）。
//
// 约束：
// - 连接不上服务一律包装为 *UnreachableError，调用方据此给出“请刷新页面”的提示
// - 搜索前检查服务当前页面是否为 Legalboards 看板
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/message"
	"github.com/John-Robertt/cardfinder/internal/server"
)

// 面向用户的提示文案。
const (
	MsgUnreachable   = "Error: card finder is not attached to the board. Please refresh the page."
	MsgNotLegalboard = "Please navigate to a Legalboards page first."
	MsgNoResponse    = "No response from card finder. Please refresh the page."
)

var (
	// ErrNotLegalboards 表示服务当前页面不是 Legalboards 看板。
	ErrNotLegalboards = errors.New(MsgNotLegalboard)
	// ErrNoResponse 表示消息已送达，但没有任何应答（端口关闭）。
	ErrNoResponse = errors.New(MsgNoResponse)
)

// legalboardsHosts 是被视为看板页面的域名后缀。
var legalboardsHosts = []string{"legalboards.app", "legalboards.com", "legalboards.io"}

// UnreachableError 表示无法连上服务。
type UnreachableError struct {
	URL string
	Err error
}

func (e *UnreachableError) Error() string { return MsgUnreachable }

func (e *UnreachableError) Unwrap() error { return e.Err }

// IsUnreachable 判断 err 是否为连接层失败。
func IsUnreachable(err error) bool {
	var e *UnreachableError
	return errors.As(err, &e)
}

// APIError 是服务返回的非 2xx 响应。
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("card finder returned %d: %s", e.Status, e.Message)
}

type Client struct {
	base *url.URL
	http *http.Client
}

// New 构造客户端；hc 为空时使用 http.DefaultClient。
func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: must be http(s)://host[:port]", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: u, http: hc}, nil
}

// IsLegalboardsURL 判断 raw 是否指向 Legalboards 站点。
func IsLegalboardsURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range legalboardsHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var h domain.Health
	err := c.getJSON(ctx, "/health", nil, &h)
	return h, err
}

// Search 发送 SEARCH_MATTER；先确认服务挂在 Legalboards 看板上。
func (c *Client) Search(ctx context.Context, query string) (domain.SearchResponse, error) {
	var resp domain.SearchResponse

	h, err := c.Health(ctx)
	if err != nil {
		return resp, err
	}
	if !IsLegalboardsURL(h.PageURL) {
		return resp, ErrNotLegalboards
	}

	body, err := json.Marshal(server.MessageRequest{Type: message.TypeSearchMatter, Query: query})
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodPost, "/api/v1/messages", nil, bytes.NewReader(body), "application/json", &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadGateway {
		return resp, ErrNoResponse
	}
	return resp, err
}

// Cards 对应控制台里的 testCardFinder。
func (c *Client) Cards(ctx context.Context) ([]domain.CardView, error) {
	var out []domain.CardView
	err := c.getJSON(ctx, "/debug/cards", nil, &out)
	return out, err
}

// Explain 对应控制台里的 debugSearch。
func (c *Client) Explain(ctx context.Context, query string) ([]domain.MatchTrace, error) {
	var out []domain.MatchTrace
	err := c.getJSON(ctx, "/debug/search", url.Values{"q": {query}}, &out)
	return out, err
}

// PushBoard 上传快照；applied=false 表示服务端已落盘、稍后生效。
func (c *Client) PushBoard(ctx context.Context, html io.Reader, pageURL string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/board", nil, html)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")
	if pageURL != "" {
		req.Header.Set(server.HeaderPageURL, pageURL)
	}
	resp, err := c.send(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return false, err
	}
	return resp.StatusCode != http.StatusAccepted, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, q, nil, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string, out any) error {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return http.NewRequestWithContext(ctx, method, u.String(), body)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		return nil, &UnreachableError{URL: c.base.String(), Err: err}
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var e server.ErrorResponse
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(b, &e); err != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(b))
	}
	if e.Error == "" {
		e.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: e.Error}
}
