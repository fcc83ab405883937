package transport

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/lk2023060901/sbs-go/pkg/config"
	"github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/sbs"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

type message struct {
	Seq  uint32
	Body string
}

func (m *message) Serialize(ar *sbs.Archive) error {
	if err := sbs.Value(ar, &m.Seq); err != nil {
		return err
	}
	return sbs.With[sbs.StringCodec](ar, &m.Body)
}

func archiveMessage(ar *sbs.Archive, m *message) error {
	return m.Serialize(ar)
}

// recorder 记录连接生命周期事件，onRecord 为 nil 时回显记录并将 Seq 加一。
type recorder struct {
	connects atomic.Int32
	closed   chan error
	onRecord func(c *Conn, payload []byte) error
}

func newRecorder() *recorder {
	return &recorder{closed: make(chan error, 16)}
}

func (r *recorder) OnConnected(*Conn) {
	r.connects.Inc()
}

func (r *recorder) OnRecord(c *Conn, payload []byte) error {
	if r.onRecord != nil {
		return r.onRecord(c, payload)
	}
	var m message
	if err := c.Decode(payload, &m); err != nil {
		return err
	}
	m.Seq++
	return c.Send(&m)
}

func (r *recorder) OnClosed(_ *Conn, err error) {
	r.closed <- err
}

type TransportSuite struct {
	suite.Suite
	cfg config.TransportConfig
}

func (s *TransportSuite) SetupSuite() {
	lg, props, err := log.InitTestLogger(s.T(), &log.Config{Level: "warn"})
	s.Require().NoError(err)
	log.ReplaceGlobals(lg, props)
}

func (s *TransportSuite) SetupTest() {
	s.cfg = config.Default().Transport
	s.cfg.DialAttempts = 2
	s.cfg.DialTimeout = time.Second
	s.cfg.IdleTimeout = 5 * time.Second
}

func (s *TransportSuite) serve(h Handler, opts ...sbs.Option) (*Server, func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.cfg.Address = ln.Addr().String()

	srv := NewServer(s.cfg, h, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	return srv, func() {
		cancel()
		select {
		case err := <-done:
			s.NoError(err)
		case <-time.After(5 * time.Second):
			s.Fail("server did not stop")
		}
	}
}

func (s *TransportSuite) TestEcho() {
	srv, stop := s.serve(newRecorder())
	defer stop()

	conn, err := Dial(context.Background(), s.cfg)
	s.Require().NoError(err)
	defer conn.Close()

	for i := uint32(0); i < 3; i++ {
		s.Require().NoError(conn.Send(&message{Seq: i * 10, Body: "hello"}))
		var got message
		s.Require().NoError(conn.Recv(&got))
		s.Equal(message{Seq: i*10 + 1, Body: "hello"}, got)
	}
	s.Eventually(func() bool { return srv.NumConns() == 1 }, time.Second, 10*time.Millisecond)
	s.NotNil(srv.Addr())
}

func (s *TransportSuite) TestFuncTierBigEndian() {
	_, stop := s.serve(newRecorder(), sbs.WithByteOrder(sbs.BigEndian))
	defer stop()

	conn, err := Dial(context.Background(), s.cfg, sbs.WithByteOrder(sbs.BigEndian))
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(SendFunc(conn, &message{Seq: 0x01020304, Body: "be"}, archiveMessage))
	var got message
	s.Require().NoError(RecvFunc(conn, &got, archiveMessage))
	s.Equal(uint32(0x01020305), got.Seq)
	s.Equal("be", got.Body)
}

func (s *TransportSuite) TestClientReconnect() {
	rec := newRecorder()
	var first atomic.Bool
	first.Store(true)
	rec.onRecord = func(c *Conn, payload []byte) error {
		if first.CompareAndSwap(true, false) {
			return merr.WrapErrServiceUnavailable("drop first connection")
		}
		var m message
		if err := c.Decode(payload, &m); err != nil {
			return err
		}
		m.Body = strings.ToUpper(m.Body)
		return c.Send(&m)
	}
	_, stop := s.serve(rec)
	defer stop()

	client := NewClient(s.cfg)
	defer client.Close()

	var resp message
	s.Require().NoError(client.Call(context.Background(), &message{Seq: 7, Body: "again"}, &resp))
	s.Equal(message{Seq: 7, Body: "AGAIN"}, resp)
	s.Equal(int32(2), rec.connects.Load())

	s.Require().NoError(client.Send(context.Background(), &message{Seq: 8}))
}

func (s *TransportSuite) TestClientConcurrentCalls() {
	_, stop := s.serve(newRecorder())
	defer stop()

	client := NewClient(s.cfg)
	defer client.Close()

	const callers = 64
	var (
		wg         sync.WaitGroup
		mismatched atomic.Int32
		failed     atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := message{Seq: uint32(i * 10), Body: strconv.Itoa(i)}
			var resp message
			if err := client.Call(context.Background(), &req, &resp); err != nil {
				failed.Inc()
				return
			}
			if resp.Seq != req.Seq+1 || resp.Body != req.Body {
				mismatched.Inc()
			}
		}(i)
	}
	wg.Wait()

	s.Zero(failed.Load())
	s.Zero(mismatched.Load())
}

func (s *TransportSuite) TestPoolRejection() {
	s.cfg.PoolSize = 1
	rec := newRecorder()
	srv, stop := s.serve(rec)
	defer stop()

	busy, err := Dial(context.Background(), s.cfg)
	s.Require().NoError(err)
	defer busy.Close()
	s.Require().NoError(busy.Send(&message{Seq: 1}))
	var got message
	s.Require().NoError(busy.Recv(&got))

	for i := 0; i < 3; i++ {
		extra, err := Dial(context.Background(), s.cfg)
		s.Require().NoError(err)
		_, err = extra.ReadRecord()
		s.ErrorIs(err, merr.ErrConnectionClosed)
		s.NoError(extra.Close())
	}
	s.Equal(int32(1), rec.connects.Load())
	s.Eventually(func() bool { return srv.NumConns() == 1 }, time.Second, 10*time.Millisecond)
}

func (s *TransportSuite) TestFrameTooLarge() {
	rec := newRecorder()
	s.cfg.MaxFrameSize = 8
	_, stop := s.serve(rec)
	defer stop()

	clientCfg := s.cfg
	clientCfg.MaxFrameSize = 0
	conn, err := Dial(context.Background(), clientCfg)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.Send(&message{Body: "this body is too long"}))
	select {
	case err := <-rec.closed:
		s.ErrorIs(err, merr.ErrFrameTooLarge)
	case <-time.After(5 * time.Second):
		s.Fail("connection was not closed")
	}

	// 本端帧上限同样生效。
	small, err := Dial(context.Background(), s.cfg)
	s.Require().NoError(err)
	defer small.Close()
	s.ErrorIs(small.WriteRecord(make([]byte, 9)), merr.ErrFrameTooLarge)
}

func (s *TransportSuite) TestServerShutdown() {
	rec := newRecorder()
	_, stop := s.serve(rec)

	conn, err := Dial(context.Background(), s.cfg)
	s.Require().NoError(err)
	defer conn.Close()
	s.Eventually(func() bool { return rec.connects.Load() == 1 }, time.Second, 10*time.Millisecond)

	stop()
	s.NoError(<-rec.closed)

	_, err = conn.ReadRecord()
	s.ErrorIs(err, merr.ErrConnectionClosed)
}

func (s *TransportSuite) TestClosedConn() {
	_, stop := s.serve(newRecorder())
	defer stop()

	conn, err := Dial(context.Background(), s.cfg)
	s.Require().NoError(err)
	s.NoError(conn.Close())
	s.NoError(conn.Close())
	s.Error(conn.Context().Err())

	s.ErrorIs(conn.Send(&message{}), merr.ErrConnectionClosed)
	_, err = conn.ReadRecord()
	s.ErrorIs(err, merr.ErrConnectionClosed)
}

func (s *TransportSuite) TestDialFailure() {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.cfg.Address = ln.Addr().String()
	s.Require().NoError(ln.Close())

	_, err = Dial(context.Background(), s.cfg)
	s.ErrorIs(err, merr.ErrIoFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Dial(ctx, s.cfg)
	s.ErrorIs(err, context.Canceled)
}

func (s *TransportSuite) TestWebSocket() {
	rec := newRecorder()
	srv := NewServer(s.cfg, rec)
	mux := http.NewServeMux()
	mux.Handle(s.cfg.WSPath, srv)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + s.cfg.WSPath
	conn, err := DialWS(context.Background(), url, s.cfg)
	s.Require().NoError(err)

	s.Require().NoError(conn.Send(&message{Seq: 41, Body: "ws"}))
	var got message
	s.Require().NoError(conn.Recv(&got))
	s.Equal(message{Seq: 42, Body: "ws"}, got)

	s.NoError(conn.Close())
	select {
	case err := <-rec.closed:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("websocket connection was not closed")
	}
	s.Equal(0, srv.NumConns())
}

func TestTransport(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}
