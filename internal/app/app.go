// Package app 负责装配运行时：事件循环、页面、索引、变更监听、搜索服务与消息分发。
//
// 约束：
// - 页面/索引/定时器只在事件循环上访问；对外方法一律通过 loop.Call 切换过去
// - App 满足 server.Backend，HTTP 层不直接接触领域对象
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/cardfinder/internal/config"
	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/eventloop"
	"github.com/John-Robertt/cardfinder/internal/extract"
	"github.com/John-Robertt/cardfinder/internal/index"
	"github.com/John-Robertt/cardfinder/internal/infra/fsx"
	"github.com/John-Robertt/cardfinder/internal/message"
	"github.com/John-Robertt/cardfinder/internal/metrics"
	"github.com/John-Robertt/cardfinder/internal/page"
	"github.com/John-Robertt/cardfinder/internal/search"
	"github.com/John-Robertt/cardfinder/internal/server"
	"github.com/John-Robertt/cardfinder/internal/watch"
)

type Options struct {
	Config config.Config
	Logger *zap.Logger
	Clock  clockwork.Clock
	// Registry 为空时新建独立的 prometheus.Registry。
	Registry *prometheus.Registry
	// Observer 额外接收每轮重建事件（可选）。
	Observer index.Observer
}

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	loop       *eventloop.Loop
	page       *page.Page
	index      *index.Index
	search     *search.Service
	dispatcher *message.Dispatcher
	feed       *page.FileFeed
}

var _ server.Backend = (*App)(nil)

func New(opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	cfg := opts.Config
	logger := opts.Logger
	m := metrics.New(opts.Registry)

	loop := eventloop.New(opts.Clock, logger.Named("loop"))
	pg := page.New(cfg.Page.URL, dom.Options{LineHeight: cfg.Page.LineHeight}, logger.Named("page"))

	counts := &countLogger{logger: logger}
	idx := index.New(pg, extract.New(logger.Named("extract")), index.Options{
		Logger:   logger.Named("index"),
		Metrics:  m,
		Clock:    opts.Clock,
		Observer: index.Observers{counts, opts.Observer},
	})

	w := watch.New(pg, idx, loop, watch.Config{
		Debounce:  cfg.Watch.Debounce,
		RetryBase: cfg.Watch.RetryBase,
		RetryMax:  cfg.Watch.RetryMax,
	}, logger.Named("watch"))

	svc := search.New(idx, pg, loop, search.Config{HighlightDuration: cfg.Highlight.Duration}, logger.Named("search"), m)

	reg, err := message.NewRegistry(message.Route{Type: message.TypeSearchMatter, Handler: svc.Handler(loop)})
	if err != nil {
		return nil, fmt.Errorf("build message registry: %w", err)
	}

	a := &App{
		cfg:        cfg,
		logger:     logger,
		registry:   opts.Registry,
		metrics:    m,
		loop:       loop,
		page:       pg,
		index:      idx,
		search:     svc,
		dispatcher: message.NewDispatcher(reg, logger.Named("message")),
	}
	if cfg.Page.File != "" {
		a.feed = page.NewFileFeed(cfg.Page.File, pg, loop, logger.Named("feed"), m)
	}

	// 循环启动前就排队：监听器总是第一个任务，任何快照都不会早于它到达。
	loop.Post(w.Start)
	return a, nil
}

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

func (a *App) Registry() *prometheus.Registry { return a.registry }

// Run 启动事件循环（以及可选的快照文件监听），阻塞直到 ctx 结束。
// ctx 取消属于正常退出，返回 nil。
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(gctx) })
	if a.feed != nil {
		g.Go(func() error { return a.feed.Run(gctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Serve 同时运行 App 与 HTTP server；ctx 结束时按 shutdown_timeout 优雅关闭。
func (a *App) Serve(ctx context.Context) error {
	srv, err := server.New(a, a.logger.Named("http"), a.metrics, a.registry, server.Config{
		Addr:      a.cfg.Server.Addr,
		RateLimit: a.cfg.Server.RateLimit,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (a *App) Dispatch(ctx context.Context, req message.Request) (any, error) {
	return a.dispatcher.Dispatch(ctx, req)
}

func (a *App) Health(ctx context.Context) (domain.Health, error) {
	var h domain.Health
	err := a.loop.Call(ctx, func() {
		h = domain.Health{
			Status:  "ok",
			PageURL: a.page.URL(),
			Ready:   a.page.Ready(),
			Cards:   a.index.Len(),
		}
	})
	return h, err
}

func (a *App) Cards(ctx context.Context) ([]domain.CardView, error) {
	var out []domain.CardView
	err := a.loop.Call(ctx, func() { out = a.search.Snapshot() })
	return out, err
}

func (a *App) Explain(ctx context.Context, query string) ([]domain.MatchTrace, error) {
	var out []domain.MatchTrace
	err := a.loop.Call(ctx, func() { out = a.search.Explain(query) })
	return out, err
}

func (a *App) Board(ctx context.Context) (string, string, error) {
	var (
		html, target string
		herr         error
	)
	err := a.loop.Call(ctx, func() {
		html, herr = a.page.HTML()
		target, _ = a.page.ScrollTarget()
	})
	if err != nil {
		return "", "", err
	}
	return html, target, herr
}

// ReplaceBoard 更新页面快照。
// 配置了 page.file 时只写文件（原子替换），由 FileFeed 统一生效，返回 applied=false。
func (a *App) ReplaceBoard(ctx context.Context, html []byte, pageURL string) (bool, error) {
	if pageURL != "" {
		if err := a.loop.Call(ctx, func() { a.page.SetURL(pageURL) }); err != nil {
			return false, err
		}
	}

	if a.feed != nil {
		dir, name := filepath.Split(a.cfg.Page.File)
		if err := fsx.WriteFileAtomicReplace(dir, name, html); err != nil {
			return false, fmt.Errorf("write snapshot: %w", err)
		}
		return false, nil
	}

	var rerr error
	err := a.loop.Call(ctx, func() {
		rerr = a.page.Replace(bytes.NewReader(html))
		if rerr == nil {
			a.metrics.ObserveSnapshot("http")
		}
	})
	if err != nil {
		return false, err
	}
	if rerr != nil {
		return false, rerr
	}
	return true, nil
}

// countLogger 在卡片数量变化时打一条 Info 日志；逐轮细节留给 Debug。
type countLogger struct {
	logger *zap.Logger
	last   int
	seen   bool
}

func (c *countLogger) OnRebuild(p index.Pass) {
	if c.seen && c.last == p.Cards {
		return
	}
	c.seen, c.last = true, p.Cards
	c.logger.Info("card index updated", zap.Int("cards", p.Cards), zap.String("trigger", string(p.Trigger)))
}
