package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lk2023060901/sbs-go/pkg/config"
	"github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/metrics"
	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
	"github.com/lk2023060901/sbs-go/pkg/util/retry"
)

const (
	dialInitialInterval = 50 * time.Millisecond
	dialMaxInterval     = time.Second
	resendSleep         = 20 * time.Millisecond
)

func newDialBackOff(ctx context.Context, attempts uint) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = dialInitialInterval
	b.MaxInterval = dialMaxInterval
	b.MaxElapsedTime = 0
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Dial 建立到 cfg.Address 的 TCP 连接，失败时按指数退避至多尝试 DialAttempts 次。
func Dial(ctx context.Context, cfg config.TransportConfig, opts ...sbs.Option) (*Conn, error) {
	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	logger := log.Ctx(ctx).With(zap.String("addr", cfg.Address))
	rated := logger.WithRateGroup(dialRateGroup, 1, 5)

	var raw net.Conn
	op := func() error {
		c, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err != nil {
			return err
		}
		raw = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		rated.RatedWarn(1, "dial failed, backing off", zap.Error(err), zap.Duration("next", next))
	}
	if err := backoff.RetryNotify(op, newDialBackOff(ctx, cfg.DialAttempts), notify); err != nil {
		metrics.TransportErrorsTotal.WithLabelValues(metrics.DialStage).Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, merr.WrapErrIoFailed(cfg.Address, err)
	}

	c := newConn(context.WithoutCancel(ctx), 0, newTCPStream(raw, frameLimit(cfg)), cfg, opts)
	c.SetLogger(logger)
	return c, nil
}

// DialWS 建立到 url 的 WebSocket 连接，每条二进制消息承载一条记录。
func DialWS(ctx context.Context, url string, cfg config.TransportConfig, opts ...sbs.Option) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		metrics.TransportErrorsTotal.WithLabelValues(metrics.DialStage).Inc()
		return nil, merr.WrapErrIoFailed(url, err)
	}

	c := newConn(context.WithoutCancel(ctx), 0, newWSStream(ws, frameLimit(cfg)), cfg, opts)
	c.SetLogger(log.Ctx(ctx).With(zap.String("url", url)))
	return c, nil
}

// Client 维护到单个服务端的连接，连接失效时重新拨号并从头重新编码记录。
//
// Client 可被多个协程共享，同一时刻只有一次 Send 或 Call 占用连接，
// 其余调用排队等待。
type Client struct {
	log.Binder

	cfg  config.TransportConfig
	opts []sbs.Option

	// xmu 串行化整个交互（含重试），mu 只保护 conn 字段。
	xmu  sync.Mutex
	mu   sync.Mutex
	conn *Conn
}

// NewClient 创建一个 Client，首次使用时才会拨号。
func NewClient(cfg config.TransportConfig, opts ...sbs.Option) *Client {
	c := &Client{
		cfg:  cfg,
		opts: opts,
	}
	c.SetLogger(log.With(log.FieldComponent("transport-client"), zap.String("addr", cfg.Address)))
	return c
}

// Send 发送一条记录。
func (c *Client) Send(ctx context.Context, v sbs.Serializable) error {
	return c.do(ctx, func(conn *Conn) error {
		return conn.Send(v)
	})
}

// Call 发送 req 并在同一连接上等待一条记录解码到 resp。
// 连接在中途失效时整个交互在新连接上重做。
func (c *Client) Call(ctx context.Context, req, resp sbs.Serializable) error {
	return c.do(ctx, func(conn *Conn) error {
		if err := conn.Send(req); err != nil {
			return err
		}
		return conn.Recv(resp)
	})
}

// Close 关闭当前连接。
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) do(ctx context.Context, fn func(conn *Conn) error) error {
	attempts := c.cfg.DialAttempts
	if attempts == 0 {
		attempts = 1
	}

	c.xmu.Lock()
	defer c.xmu.Unlock()
	return retry.Do(ctx, func() error {
		conn, err := c.connect(ctx)
		if err != nil {
			// Dial 已经按退避策略重试过。
			return retry.Unrecoverable(err)
		}
		if err := fn(conn); err != nil {
			if merr.IsRetryableErr(err) {
				c.drop(conn)
			}
			return err
		}
		return nil
	}, retry.Attempts(attempts), retry.Sleep(resendSleep), retry.RetryErr(merr.IsRetryableErr))
}

func (c *Client) connect(ctx context.Context) (*Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := Dial(ctx, c.cfg, c.opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) drop(conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.Logger().Info("dropping broken connection", log.FieldRemote(conn.RemoteAddr()))
		_ = conn.Close()
		c.conn = nil
	}
}
