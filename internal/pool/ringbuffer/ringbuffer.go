// Package ringbuffer 复用 sbs.Pipe 使用的环形缓冲区。
package ringbuffer

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/lk2023060901/sbs-go/pkg/buffer/ring"
)

const (
	// DefaultSize 为新建缓冲区的初始容量。
	DefaultSize = ring.DefaultBufferSize
	// DefaultMaxRetained 为归还时保留的最大容量，更大的缓冲区交给 GC。
	DefaultMaxRetained = 1 << 20
)

// RingBuffer 是 ring.Buffer 的别名，便于在池中引用。
type RingBuffer = ring.Buffer

// Pool 是环形缓冲区的对象池。
// 一次大记录会把缓冲区撑大，超过 maxRetained 的缓冲区不再回收。
type Pool struct {
	size        int
	maxRetained int
	pool        sync.Pool

	gets  atomic.Uint64
	drops atomic.Uint64
}

// Stats 是池的累计计数。
type Stats struct {
	Gets  uint64
	Drops uint64
}

// NewPool 创建一个 Pool，maxRetained 为 0 表示不限制回收容量。
func NewPool(size, maxRetained int) *Pool {
	return &Pool{size: size, maxRetained: maxRetained}
}

var builtinPool = NewPool(DefaultSize, DefaultMaxRetained)

// Get 从默认池中获取一个空的环形缓冲区。
func Get() *RingBuffer { return builtinPool.Get() }

// Put 将缓冲区归还到默认池中，归还后不允许再访问。
func Put(b *RingBuffer) { builtinPool.Put(b) }

// Get 返回一个空的环形缓冲区。
func (p *Pool) Get() *RingBuffer {
	p.gets.Inc()
	if v := p.pool.Get(); v != nil {
		return v.(*RingBuffer)
	}
	return ring.New(p.size)
}

// Put 清空并回收 b。
func (p *Pool) Put(b *RingBuffer) {
	if b == nil {
		return
	}
	if p.maxRetained > 0 && b.Cap() > p.maxRetained {
		p.drops.Inc()
		return
	}
	b.Reset()
	p.pool.Put(b)
}

func (p *Pool) Stats() Stats {
	return Stats{Gets: p.gets.Load(), Drops: p.drops.Load()}
}
