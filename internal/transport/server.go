package transport

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/sbs-go/pkg/config"
	"github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/metrics"
	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/conc"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
	"github.com/lk2023060901/sbs-go/pkg/util/typeutil"
)

const (
	traceName = "sbs-transport"

	rejectRateGroup = "sbs.transport.reject"
	dialRateGroup   = "sbs.transport.dial"

	// defaultPoolSize 为未配置 pool_size 时同时服务的连接上限。
	defaultPoolSize = 1024
)

var errStopped = errors.New("transport: server stopped")

// Handler 由使用者实现，在连接生命周期的各个阶段被调用。
// 同一连接上的回调串行执行。
type Handler interface {
	// OnConnected 在连接建立后被调用一次。
	OnConnected(c *Conn)

	// OnRecord 在收到一条完整记录后被调用。
	// 返回非 nil 错误时关闭该连接。
	OnRecord(c *Conn, payload []byte) error

	// OnClosed 在连接结束时被调用，对端正常关闭时 err 为 nil。
	OnClosed(c *Conn, err error)
}

// RecordHandlerFunc 只关心记录本身的 Handler。
type RecordHandlerFunc func(c *Conn, payload []byte) error

var _ Handler = RecordHandlerFunc(nil)

func (f RecordHandlerFunc) OnConnected(*Conn) {}
func (f RecordHandlerFunc) OnClosed(*Conn, error) {}

func (f RecordHandlerFunc) OnRecord(c *Conn, payload []byte) error {
	return f(c, payload)
}

// Server 接受 TCP 或 WebSocket 连接，并为每条连接在协程池中运行读循环。
type Server struct {
	log.Binder

	cfg      config.TransportConfig
	handler  Handler
	opts     []sbs.Option
	upgrader websocket.Upgrader

	pool   *conc.Pool[struct{}]
	conns  *typeutil.ConcurrentSet[*Conn]
	nextID atomic.Uint64
	wg     sync.WaitGroup

	mu sync.Mutex
	ln net.Listener
}

// NewServer 创建一个 Server，opts 决定连接上记录的编码方式。
func NewServer(cfg config.TransportConfig, h Handler, opts ...sbs.Option) *Server {
	size := cfg.PoolSize
	if size <= 0 {
		size = defaultPoolSize
	}
	s := &Server{
		cfg:     cfg,
		handler: h,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		pool:  conc.NewPool[struct{}](size, conc.WithName("sbs-transport"), conc.WithNonBlocking(true)),
		conns: typeutil.NewConcurrentSet[*Conn](),
	}
	s.SetLogger(log.With(log.FieldComponent("transport-server")))
	return s
}

// ListenAndServe 在 cfg.Address 上监听 TCP 并调用 Serve。
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		metrics.TransportErrorsTotal.WithLabelValues(metrics.AcceptStage).Inc()
		return merr.WrapErrIoFailed(s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在 ln 上接受连接，阻塞直至 ctx 取消、Close 被调用或出现致命错误。
// 返回前关闭所有连接并等待其回调结束。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	logger := s.Logger().With(zap.Stringer("addr", ln.Addr()))
	logger.Info("transport server started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		_ = ln.Close()
		s.conns.Range(func(c *Conn) bool {
			_ = c.Close()
			return true
		})
		return nil
	})
	g.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})

	err := g.Wait()
	s.wg.Wait()
	s.pool.Release()

	if errors.Is(err, errStopped) {
		err = nil
	}
	logger.Info("transport server stopped", zap.Error(err))
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return errStopped
			}
			metrics.TransportErrorsTotal.WithLabelValues(metrics.AcceptStage).Inc()
			return merr.WrapErrIoFailed("accept", err)
		}

		c := s.track(ctx, newTCPStream(raw, frameLimit(s.cfg)))
		s.wg.Add(1)
		future := s.pool.Submit(func() (struct{}, error) {
			defer s.wg.Done()
			s.serveConn(c)
			return struct{}{}, nil
		})
		if future.Done() && future.Err() != nil {
			s.wg.Done()
			s.untrack(c)
			_ = c.Close()
			metrics.TransportErrorsTotal.WithLabelValues(metrics.AcceptStage).Inc()
			s.Logger().WithRateGroup(rejectRateGroup, 1, 10).
				RatedWarn(1, "connection rejected", log.FieldRemote(raw.RemoteAddr()), zap.Error(future.Err()))
		}
	}
}

// ServeHTTP 将 HTTP 请求升级为 WebSocket，并在当前协程中运行该连接的读循环。
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.TransportErrorsTotal.WithLabelValues(metrics.AcceptStage).Inc()
		s.Logger().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := s.track(context.WithoutCancel(r.Context()), newWSStream(ws, frameLimit(s.cfg)))
	s.serveConn(c)
}

// Close 停止接受新连接，已建立的连接在 Serve 返回前关闭。
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return merr.WrapErrIoFailed("close listener", err)
	}
	return nil
}

// Addr 返回监听地址，尚未开始 Serve 时返回 nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// NumConns 返回当前持有的连接数。
func (s *Server) NumConns() int {
	return s.conns.Len()
}

func (s *Server) track(ctx context.Context, stream recordStream) *Conn {
	c := newConn(ctx, s.nextID.Inc(), stream, s.cfg, s.opts)
	s.conns.Insert(c)
	metrics.TransportConnections.Inc()
	return c
}

func (s *Server) untrack(c *Conn) {
	if s.conns.TryRemove(c) {
		metrics.TransportConnections.Dec()
	}
}

// serveConn 串行读取记录并回调 Handler，直到连接结束。
func (s *Server) serveConn(c *Conn) {
	ctx, span := log.NewIntentContext(c.Context(), traceName, "serve-conn")
	defer span.End()
	ctx = log.WithConnID(ctx, c.ID())
	c.SetLogger(log.Ctx(ctx).With(log.FieldRemote(c.RemoteAddr())))

	logger := c.Logger()
	logger.Debug("connection accepted")
	s.handler.OnConnected(c)

	var cause error
	for {
		payload, err := c.ReadRecord()
		if err != nil {
			if !errors.Is(err, merr.ErrConnectionClosed) {
				cause = err
			}
			break
		}
		if err := s.handler.OnRecord(c, payload); err != nil {
			metrics.TransportErrorsTotal.WithLabelValues(metrics.HandleStage).Inc()
			cause = err
			break
		}
	}

	_ = c.Close()
	s.untrack(c)
	s.handler.OnClosed(c, cause)
	if cause != nil {
		logger.Warn("connection terminated", zap.Error(cause))
	}
}

// frameLimit 返回单条记录允许的最大字节数，未配置时使用默认值。
func frameLimit(cfg config.TransportConfig) uint32 {
	if cfg.MaxFrameSize == 0 {
		return config.DefaultMaxFrameSize
	}
	return cfg.MaxFrameSize
}
