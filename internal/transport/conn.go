// Package transport 在 TCP 与 WebSocket 上收发 sbs 记录。
//
// 每条记录是一次完整的 sbs 遍历结果。TCP 上使用 4 字节大端长度前缀分帧，
// WebSocket 上一条二进制消息即一条记录。
package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/sbs-go/pkg/config"
	"github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/metrics"
	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Conn 是一条承载 sbs 记录的连接。
//
// 写入方向由内部互斥锁串行化，可被多个协程并发调用；
// 读取方向只允许单个协程使用。
type Conn struct {
	log.Binder

	id     uint64
	stream recordStream
	opts   []sbs.Option
	idle   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool

	wmu       sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

func newConn(parent context.Context, id uint64, stream recordStream, cfg config.TransportConfig, opts []sbs.Option) *Conn {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Conn{
		id:     id,
		stream: stream,
		opts:   opts,
		idle:   cfg.IdleTimeout,
		ctx:    ctx,
		cancel: cancel,
	}
	// 上层取消时关闭连接，使阻塞中的读写返回。
	c.stop = context.AfterFunc(parent, func() { _ = c.close() })
	return c
}

// ID 返回服务端分配的连接编号，客户端连接为 0。
func (c *Conn) ID() uint64 {
	return c.id
}

// Context 返回连接的上下文，连接关闭时被取消。
func (c *Conn) Context() context.Context {
	return c.ctx
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.stream.RemoteAddr()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.stream.LocalAddr()
}

// WriteRecord 发送一条已编码的记录。
func (c *Conn) WriteRecord(payload []byte) error {
	if c.closed.Load() {
		return c.closedErr()
	}

	c.wmu.Lock()
	err := c.stream.WriteRecord(payload)
	c.wmu.Unlock()

	if err != nil {
		if c.closed.Load() {
			return c.closedErr()
		}
		metrics.TransportErrorsTotal.WithLabelValues(metrics.WriteStage).Inc()
		return err
	}
	metrics.ObserveFrame(metrics.OutboundLabel, len(payload))
	return nil
}

// ReadRecord 读取下一条记录。
// 对端正常关闭或本端已关闭时返回 ErrConnectionClosed。
func (c *Conn) ReadRecord() ([]byte, error) {
	if c.closed.Load() {
		return nil, c.closedErr()
	}
	if c.idle > 0 {
		if err := c.stream.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
			return nil, merr.WrapErrIoFailed("set read deadline", err)
		}
	}

	payload, err := c.stream.ReadRecord()
	if err != nil {
		if c.closed.Load() || errors.Is(err, io.EOF) {
			return nil, c.closedErr()
		}
		if !errors.Is(err, merr.ErrConnectionClosed) {
			metrics.TransportErrorsTotal.WithLabelValues(metrics.ReadStage).Inc()
		}
		return nil, err
	}
	metrics.ObserveFrame(metrics.InboundLabel, len(payload))
	return payload, nil
}

// Send 编码 v 并作为一条记录发送。
func (c *Conn) Send(v sbs.Serializable) error {
	data, err := sbs.Marshal(v, c.opts...)
	metrics.RecordsTotal.WithLabelValues(metrics.EncodeLabel, metrics.StatusLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.WriteRecord(data)
}

// Recv 读取下一条记录并解码到 v。
func (c *Conn) Recv(v sbs.Serializable) error {
	payload, err := c.ReadRecord()
	if err != nil {
		return err
	}
	return c.Decode(payload, v)
}

// Decode 按连接的编码选项将 payload 解码到 v。
func (c *Conn) Decode(payload []byte, v sbs.Serializable) error {
	err := sbs.Unmarshal(payload, v, c.opts...)
	metrics.RecordsTotal.WithLabelValues(metrics.DecodeLabel, metrics.StatusLabel(err)).Inc()
	return err
}

// SendFunc 使用自由函数 fn 编码 v 并发送。
func SendFunc[T any](c *Conn, v *T, fn sbs.Func[T]) error {
	data, err := sbs.MarshalFunc(v, fn, c.opts...)
	metrics.RecordsTotal.WithLabelValues(metrics.EncodeLabel, metrics.StatusLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.WriteRecord(data)
}

// RecvFunc 读取下一条记录并使用自由函数 fn 解码到 v。
func RecvFunc[T any](c *Conn, v *T, fn sbs.Func[T]) error {
	payload, err := c.ReadRecord()
	if err != nil {
		return err
	}
	err = sbs.UnmarshalFunc(payload, v, fn, c.opts...)
	metrics.RecordsTotal.WithLabelValues(metrics.DecodeLabel, metrics.StatusLabel(err)).Inc()
	return err
}

// Close 关闭连接，可重复调用。
func (c *Conn) Close() error {
	c.stop()
	return c.close()
}

func (c *Conn) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		if cerr := c.stream.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = merr.WrapErrIoFailed("close", cerr)
		}
		c.Logger().Debug("connection closed", zap.Uint64(log.FieldNameConnID, c.id))
	})
	return err
}

func (c *Conn) closedErr() error {
	return merr.WrapErrConnectionClosed(addrString(c.stream.RemoteAddr()))
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
