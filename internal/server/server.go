// Package server 通过 HTTP 暴露消息通道、调试入口与快照读写。
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/message"
	"github.com/John-Robertt/cardfinder/internal/metrics"
)

const (
	// HeaderScrollTarget 携带最近一次滚动目标的元素路径。
	HeaderScrollTarget = "X-Scroll-Target"
	// HeaderPageURL 允许 PUT /board 同时更新页面地址。
	HeaderPageURL = "X-Page-URL"

	maxBoardBytes = 32 << 20
)

// Backend 是 server 依赖的核心能力；实现负责把调用切换到事件循环上。
type Backend interface {
	Dispatch(ctx context.Context, req message.Request) (any, error)
	Health(ctx context.Context) (domain.Health, error)
	Cards(ctx context.Context) ([]domain.CardView, error)
	Explain(ctx context.Context, query string) ([]domain.MatchTrace, error)
	Board(ctx context.Context) (html string, scrollTarget string, err error)
	// ReplaceBoard 返回 applied=false 表示快照已持久化、稍后由文件监听生效。
	ReplaceBoard(ctx context.Context, html []byte, pageURL string) (applied bool, err error)
}

type Config struct {
	Addr string
	// RateLimit 是 /api/v1 每个客户端每秒允许的请求数；<=0 表示不限速。
	RateLimit float64
}

// Server 是 echo 之上的 HTTP 入口。
type Server struct {
	echo     *echo.Echo
	backend  Backend
	logger   *zap.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	config   Config
}

func New(backend Backend, logger *zap.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, cfg Config) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// 让 echo 先写出错误响应，日志与指标才能拿到真实状态码。
				c.Error(err)
			}
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveHTTP(c.Request().Method, route, status)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:     e,
		backend:  backend,
		logger:   logger,
		metrics:  m,
		gatherer: gatherer,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(s.config.RateLimit))))
	}
	v1.POST("/messages", s.handleMessage)

	dbg := s.echo.Group("/debug")
	dbg.GET("/cards", s.handleDebugCards)
	dbg.GET("/search", s.handleDebugSearch)

	s.echo.GET("/board", s.handleGetBoard)
	s.echo.PUT("/board", s.handlePutBoard)

	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler 暴露底层 http.Handler（测试用 httptest 直接驱动）。
func (s *Server) Handler() http.Handler { return s.echo }

// MessageRequest 是 POST /api/v1/messages 的请求体。
type MessageRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

// ErrorResponse 是错误响应体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// errorHandler 把所有错误统一写成 ErrorResponse。
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: msg})
}

func (s *Server) handleMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid message request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Type) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "type field is required")
	}

	v, err := s.backend.Dispatch(c.Request().Context(), message.Request{Type: req.Type, Query: req.Query})
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, v)
	case errors.Is(err, message.ErrNoHandler):
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown message type %q", req.Type))
	case errors.Is(err, message.ErrPortClosed):
		return echo.NewHTTPError(http.StatusBadGateway, "message port closed before a response was received")
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "timed out waiting for a response")
	default:
		return err
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	h, err := s.backend.Health(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, h)
}

func (s *Server) handleDebugCards(c echo.Context) error {
	cards, err := s.backend.Cards(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, cards)
}

func (s *Server) handleDebugSearch(c echo.Context) error {
	traces, err := s.backend.Explain(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, traces)
}

func (s *Server) handleGetBoard(c echo.Context) error {
	html, target, err := s.backend.Board(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if target != "" {
		c.Response().Header().Set(HeaderScrollTarget, target)
	}
	return c.HTML(http.StatusOK, html)
}

func (s *Server) handlePutBoard(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBoardBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(body) > maxBoardBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "snapshot too large")
	}

	applied, err := s.backend.ReplaceBoard(c.Request().Context(), body, c.Request().Header.Get(HeaderPageURL))
	if err != nil {
		s.logger.Warn("replace board failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to replace board snapshot")
	}
	if !applied {
		return c.NoContent(http.StatusAccepted)
	}
	return c.NoContent(http.StatusNoContent)
}

// Start 启动 HTTP 服务；正常关闭时返回 nil。
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭。
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
