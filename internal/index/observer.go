package index

// Observer 把“每轮重建完成”从索引里解耦出来（用于健康检查、诊断输出等）。
//
// 约束：
// - 回调在事件循环上同步执行，实现不得阻塞
// - Index 只发事件，不关心谁在听
type Observer interface {
	OnRebuild(p Pass)
}

// ObserverFunc 让普通函数满足 Observer。
type ObserverFunc func(p Pass)

func (f ObserverFunc) OnRebuild(p Pass) { f(p) }

// NopObserver 忽略所有事件。
type NopObserver struct{}

func (NopObserver) OnRebuild(Pass) {}

// Observers 依次转发给多个 Observer。
type Observers []Observer

func (os Observers) OnRebuild(p Pass) {
	for _, o := range os {
		if o != nil {
			o.OnRebuild(p)
		}
	}
}
