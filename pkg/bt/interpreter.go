package bt

import (
	"sync"

	"github.com/lk2023060901/xdooria-ai/pkg/logger"
)

// TraceEvent 单个节点的求值记录，在节点返回时产生
type TraceEvent struct {
	Node   *Node
	Depth  int
	Status Status
	// Err 仅在处理器未注册时非空
	Err error
}

// InterpreterOption 解释器选项
type InterpreterOption func(*interpreterOptions)

type interpreterOptions struct {
	logger    logger.Logger
	trace     func(TraceEvent)
	onUnknown func(*UnknownHandlerError)
}

// WithLogger 设置日志器
func WithLogger(l logger.Logger) InterpreterOption {
	return func(o *interpreterOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTrace 每访问一个节点回调一次
func WithTrace(fn func(TraceEvent)) InterpreterOption {
	return func(o *interpreterOptions) { o.trace = fn }
}

// WithUnknownHandlerHook 每次遇到未注册的处理器时回调
func WithUnknownHandlerHook(fn func(*UnknownHandlerError)) InterpreterOption {
	return func(o *interpreterOptions) { o.onUnknown = fn }
}

// Interpreter 行为树解释器
//
// 解释器本身不保存实体状态，可在多个会话间共享。
// 唯一的可变状态是"未注册处理器已告警"集合，由互斥锁保护。
type Interpreter[C any] struct {
	reg  *Registry[C]
	opts interpreterOptions

	mu       sync.Mutex
	reported map[UnknownHandlerError]struct{}
}

// NewInterpreter 创建解释器
func NewInterpreter[C any](reg *Registry[C], opts ...InterpreterOption) *Interpreter[C] {
	o := interpreterOptions{logger: logger.NewNoop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named("bt")
	return &Interpreter[C]{
		reg:      reg,
		opts:     o,
		reported: make(map[UnknownHandlerError]struct{}),
	}
}

// Tick 对树做一次完整求值，深度优先、从左到右，每个被访问的节点只求值一次
func (it *Interpreter[C]) Tick(t *Tree, ctx C) Status {
	if t == nil || t.Root == nil {
		return Failure
	}
	return it.eval(t.Root, ctx, 0)
}

func (it *Interpreter[C]) eval(n *Node, ctx C, depth int) Status {
	var (
		st  Status
		err error
	)

	switch n.Kind {
	case KindTree, KindSelector:
		st = Failure
		for _, c := range n.Children {
			if s := it.eval(c, ctx, depth+1); s != Failure {
				st = s
				break
			}
		}

	case KindSequence:
		st = Success
		for _, c := range n.Children {
			if s := it.eval(c, ctx, depth+1); s != Success {
				st = s
				break
			}
		}

	case KindCondition:
		var pred Predicate[C]
		pred, err = it.reg.ResolveCondition(n.Name())
		switch {
		case err != nil:
			st = Failure
		case !pred(ctx, n.Args()):
			st = Failure
		default:
			st = it.eval(n.Children[0], ctx, depth+1)
		}

	case KindTask:
		var act Action[C]
		act, err = it.reg.ResolveTask(n.Name())
		if err != nil {
			st = Failure
		} else {
			st = act(ctx, n.Args())
			if !st.Valid() {
				it.opts.logger.Error("task returned invalid status, treating as failure",
					"task", n.Name(), "status", uint8(st), "line", n.Line)
				st = Failure
			}
		}

	case KindFail:
		st = Failure

	case KindSucceed:
		st = it.eval(n.Children[0], ctx, depth+1)
		if st == Failure {
			st = Success
		}

	default:
		it.opts.logger.Error("invalid node kind", "kind", uint8(n.Kind), "line", n.Line)
		st = Failure
	}

	if err != nil {
		it.unknown(err.(*UnknownHandlerError), n)
	}
	if it.opts.trace != nil {
		it.opts.trace(TraceEvent{Node: n, Depth: depth, Status: st, Err: err})
	}
	return st
}

func (it *Interpreter[C]) unknown(e *UnknownHandlerError, n *Node) {
	if it.opts.onUnknown != nil {
		it.opts.onUnknown(e)
	}

	it.mu.Lock()
	_, seen := it.reported[*e]
	if !seen {
		it.reported[*e] = struct{}{}
	}
	it.mu.Unlock()

	if !seen {
		it.opts.logger.Warn("unknown handler, node resolves to failure",
			"kind", string(e.Kind), "name", e.Name, "line", n.Line)
	}
}
