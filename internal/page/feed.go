package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/metrics"
)

// ErrFeedStopped 表示事件循环已退出，快照无法再被应用。
var ErrFeedStopped = errors.New("page feed: event loop stopped")

// Poster 把任务投递到事件循环（eventloop.Loop 满足该接口）。
type Poster interface {
	Post(task func()) bool
}

// FileFeed 监听快照文件，每次内容变化都在事件循环上 Replace 页面。
//
// 约束：
// - 监听的是文件所在目录：原子写（临时文件 + rename）会替换 inode，直接监听文件会丢事件
// - 读取失败只记日志，保留旧快照
type FileFeed struct {
	path    string
	page    *Page
	loop    Poster
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewFileFeed(path string, p *Page, loop Poster, logger *zap.Logger, m *metrics.Metrics) *FileFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileFeed{
		path:    path,
		page:    p,
		loop:    loop,
		logger:  logger.With(zap.String("snapshot", path)),
		metrics: m,
	}
}

// Run 阻塞直到 ctx 结束；启动时若文件已存在会先加载一次。
func (f *FileFeed) Run(ctx context.Context) error {
	abs, err := filepath.Abs(f.path)
	if err != nil {
		return fmt.Errorf("resolve snapshot path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create snapshot watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch snapshot dir: %w", err)
	}

	if _, err := os.Stat(abs); err == nil {
		if err := f.load(abs); err != nil {
			if errors.Is(err, ErrFeedStopped) {
				return err
			}
			f.logger.Warn("initial snapshot load failed", zap.Error(err))
		}
	} else {
		f.logger.Info("snapshot file not found yet; waiting for it to appear")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := f.load(abs); err != nil {
				if errors.Is(err, ErrFeedStopped) {
					return err
				}
				f.logger.Warn("snapshot load failed", zap.Error(err))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}

func (f *FileFeed) load(abs string) error {
	data, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	if !f.loop.Post(func() {
		if err := f.page.Replace(bytes.NewReader(data)); err != nil {
			f.logger.Warn("snapshot parse failed", zap.Error(err))
			return
		}
		f.metrics.ObserveSnapshot("file")
		f.logger.Debug("snapshot applied", zap.Int("bytes", len(data)))
	}) {
		return ErrFeedStopped
	}
	return nil
}
