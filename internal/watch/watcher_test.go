package watch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/eventloop"
	"github.com/John-Robertt/cardfinder/internal/index"
	"github.com/John-Robertt/cardfinder/internal/page"
)

const oneCard = `<html><body><div class="card" data-offset-height="90"><div>Jane Doe</div><div>2019-11111</div></div></body></html>`

type fakePage struct {
	doc       dom.Document
	ready     bool
	observers []func()
	onReady   []func()
	onLoad    []func()
}

func newFakePage(t *testing.T) *fakePage {
	return &fakePage{doc: mustDoc(t, `<html><body></body></html>`)}
}

func mustDoc(t *testing.T, s string) dom.Document {
	t.Helper()
	d, err := dom.ParseString(s, dom.Options{})
	require.NoError(t, err)
	return d
}

func (p *fakePage) Document() dom.Document { return p.doc }

func (p *fakePage) Observe(fn func()) func() {
	p.observers = append(p.observers, fn)
	i := len(p.observers) - 1
	return func() { p.observers[i] = nil }
}

func (p *fakePage) OnReady(fn func()) {
	if p.ready {
		fn()
		return
	}
	p.onReady = append(p.onReady, fn)
}

func (p *fakePage) OnLoad(fn func()) { p.onLoad = append(p.onLoad, fn) }

func (p *fakePage) fireReady() {
	p.ready = true
	for _, fn := range p.onReady {
		fn()
	}
}

func (p *fakePage) fireLoad() {
	for _, fn := range p.onLoad {
		fn()
	}
}

func (p *fakePage) mutate() {
	for _, fn := range p.observers {
		if fn != nil {
			fn()
		}
	}
}

// recorder 记录每次重建的触发来源与发生时刻。
type recorder struct {
	*index.Index
	s      *manualScheduler
	passes []string
	at     []time.Duration
}

func (r *recorder) Rebuild(trigger index.Trigger) index.Pass {
	r.passes = append(r.passes, string(trigger))
	r.at = append(r.at, r.s.now)
	return r.Index.Rebuild(trigger)
}

func (r *recorder) count(trigger index.Trigger) int {
	n := 0
	for _, p := range r.passes {
		if p == string(trigger) {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*fakePage, *manualScheduler, *recorder, *Watcher) {
	t.Helper()
	p := newFakePage(t)
	s := &manualScheduler{}
	r := &recorder{Index: index.New(p, nil, index.Options{}), s: s}
	w := New(p, r, s, Config{}, nil)
	return p, s, r, w
}

func TestWatcher_MutationsAreDebounced(t *testing.T) {
	p, s, r, w := setup(t)
	w.Start()

	for i := 0; i < 10; i++ {
		p.mutate()
		s.Advance(100 * time.Millisecond)
	}
	if r.count(index.TriggerMutation) != 0 {
		t.Fatalf("持续变更期间不应重建")
	}

	s.Advance(400 * time.Millisecond)
	if r.count(index.TriggerMutation) != 1 {
		t.Fatalf("静默 500ms 后应重建一次，实际 %d", r.count(index.TriggerMutation))
	}
}

func TestWatcher_RetryLoopLinearBackoffAndCeiling(t *testing.T) {
	p, s, r, w := setup(t)
	w.Start()
	p.fireReady()

	s.Advance(time.Minute)

	want := []time.Duration{0, 1 * time.Second, 3 * time.Second, 6 * time.Second, 10 * time.Second}
	require.Equal(t, []string{"ready", "retry", "retry", "retry", "retry"}, r.passes)
	assert.Equal(t, want, r.at)
}

func TestWatcher_RetryStopsOnceCardsFound(t *testing.T) {
	p, s, r, w := setup(t)
	w.Start()
	p.fireReady()

	s.Advance(2 * time.Second)
	p.doc = mustDoc(t, oneCard) // 不经过变更通知，只能被重试发现
	s.Advance(time.Minute)

	// ready@0, retry@1s (空), retry@3s (命中) → 结束
	assert.Equal(t, []string{"ready", "retry", "retry"}, r.passes)
	assert.Equal(t, 1, r.Len())
}

func TestWatcher_AlreadyReadyStartsImmediately(t *testing.T) {
	p, _, r, w := setup(t)
	p.ready = true
	p.doc = mustDoc(t, oneCard)

	w.Start()
	assert.Equal(t, []string{"ready"}, r.passes)
	assert.Equal(t, 1, r.Len())
}

func TestWatcher_LoadIsOneShot(t *testing.T) {
	p, s, r, w := setup(t)
	p.doc = mustDoc(t, oneCard)
	w.Start()

	p.fireReady()
	p.fireLoad()
	s.Advance(time.Minute)

	assert.Equal(t, []string{"ready", "load"}, r.passes)
}

func TestWatcher_StopCancelsEverything(t *testing.T) {
	p, s, r, w := setup(t)
	w.Start()
	p.fireReady()
	p.mutate()

	w.Stop()
	p.mutate()
	p.fireLoad()
	s.Advance(time.Minute)

	assert.Equal(t, []string{"ready"}, r.passes)
}

// 端到端：真实 page + eventloop + 假时钟。
func TestWatcher_WithEventLoop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	loop := eventloop.New(clock, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	pg := page.New("", dom.Options{}, nil)
	var rebuilds atomic.Int32
	idx := index.New(pg, nil, index.Options{
		Observer: index.ObserverFunc(func(index.Pass) { rebuilds.Add(1) }),
	})

	var replaceErr error
	require.NoError(t, loop.Call(ctx, func() {
		New(pg, idx, loop, Config{}, nil).Start()
		replaceErr = pg.ReplaceString(oneCard) // ready + load
	}))
	require.NoError(t, replaceErr)
	assert.Equal(t, int32(2), rebuilds.Load())

	require.NoError(t, loop.Call(ctx, func() {
		replaceErr = pg.ReplaceString(`<html><body></body></html>`)
	}))
	require.NoError(t, replaceErr)
	clock.BlockUntil(1)
	clock.Advance(500 * time.Millisecond)

	assert.Eventually(t, func() bool {
		var n int
		_ = loop.Call(ctx, func() { n = idx.Len() })
		return rebuilds.Load() == 3 && n == 0
	}, time.Second, 5*time.Millisecond)
}
