package app

import (
	"github.com/google/wire"
)

// Components 由 Wire 组装的后台服务、资源与前台任务
type Components struct {
	Servers []Server
	Closers []Closer
	// Task 为空时应用作为常驻服务运行
	Task Task
}

var ProviderSet = wire.NewSet(
	NewBaseApp,
)

// Bind 将组件绑定到 BaseApp
func Bind(a *BaseApp, comps Components) Application {
	a.AppendServer(comps.Servers...)
	a.AppendCloser(comps.Closers...)
	if comps.Task != nil {
		a.SetTask(comps.Task)
	}
	return a
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// CloserFunc 将函数转换为 Closer
func CloserFunc(fn func() error) Closer {
	return closerFunc(fn)
}
