// Package bytebuff 基于 valyala/bytebufferpool 的缓冲池
package bytebuff

import (
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// ByteBuffer 池化的字节缓冲，实现 io.Writer
type ByteBuffer = bytebufferpool.ByteBuffer

// Pool 带统计的缓冲池
type Pool struct {
	pool bytebufferpool.Pool
	gets atomic.Uint64
	puts atomic.Uint64
}

var defaultPool = &Pool{}

// Get 从池中获取一个已清空的缓冲
func (p *Pool) Get() *ByteBuffer {
	p.gets.Add(1)
	return p.pool.Get()
}

// Put 归还缓冲，归还后不可再使用
func (p *Pool) Put(buf *ByteBuffer) {
	if buf == nil {
		return
	}
	p.puts.Add(1)
	p.pool.Put(buf)
}

// Stats 返回获取与归还次数
func (p *Pool) Stats() (gets, puts uint64) {
	return p.gets.Load(), p.puts.Load()
}

// Get 从默认池获取缓冲
func Get() *ByteBuffer {
	return defaultPool.Get()
}

// Put 归还缓冲到默认池
func Put(buf *ByteBuffer) {
	defaultPool.Put(buf)
}

// Detach 复制缓冲内容并归还缓冲
func Detach(buf *ByteBuffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	Put(buf)
	return out
}
