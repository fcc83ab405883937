package sbs

import (
	"github.com/lk2023060901/sbs-go/internal/pool/ringbuffer"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Pipe 是内存中的先进先出通道，同时实现 Sink 和 Source。
// 它把一次写遍历直接接到一次读遍历上，不需要中间切片。
// 底层环形缓冲区来自对象池，使用完毕后必须 Close 归还。
type Pipe struct {
	rb      *ringbuffer.RingBuffer
	staging []byte
}

func NewPipe() *Pipe {
	return &Pipe{rb: ringbuffer.Get()}
}

func (p *Pipe) Push(b []byte) error {
	if p.rb == nil {
		return merr.WrapErrIoFailedReason("pipe closed", "push")
	}
	_, err := p.rb.Write(b)
	return err
}

func (p *Pipe) Pull(n int) ([]byte, error) {
	if p.rb == nil {
		return nil, merr.WrapErrIoFailedReason("pipe closed", "pull")
	}
	if n < 0 {
		return nil, merr.WrapErrParameterInvalidMsg("negative pull size %d", n)
	}
	if buffered := p.rb.Buffered(); buffered < n {
		return nil, merr.WrapErrUnderrun(n, buffered)
	}
	if cap(p.staging) < n {
		p.staging = make([]byte, n)
	}
	buf := p.staging[:n]
	if err := p.rb.ReadFull(buf); err != nil {
		return nil, merr.WrapErrIoFailed("pipe", err)
	}
	return buf, nil
}

// Buffered 返回尚未被读取的字节数。
func (p *Pipe) Buffered() int {
	if p.rb == nil {
		return 0
	}
	return p.rb.Buffered()
}

// Close 把环形缓冲区归还对象池，重复调用是安全的。
func (p *Pipe) Close() {
	if p.rb == nil {
		return
	}
	ringbuffer.Put(p.rb)
	p.rb = nil
	p.staging = nil
}
