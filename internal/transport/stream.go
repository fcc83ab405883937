package transport

import (
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	"github.com/lk2023060901/sbs-go/internal/transport/framer"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// recordStream 是承载完整记录的底层链路。
// TCP 上依靠长度前缀分帧，WebSocket 上一条二进制消息即一条记录。
type recordStream interface {
	WriteRecord(payload []byte) error
	ReadRecord() ([]byte, error)
	SetReadDeadline(t time.Time) error
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
	Close() error
}

type tcpStream struct {
	net.Conn
	framer framer.Framer
}

func newTCPStream(conn net.Conn, maxFrameSize uint32) *tcpStream {
	return &tcpStream{
		Conn:   conn,
		framer: framer.NewLengthPrefixedFramer(maxFrameSize),
	}
}

func (s *tcpStream) WriteRecord(payload []byte) error {
	return s.framer.WriteFrame(s.Conn, payload)
}

func (s *tcpStream) ReadRecord() ([]byte, error) {
	return s.framer.ReadFrame(s.Conn)
}

type wsStream struct {
	*websocket.Conn
	maxFrameSize uint32
}

func newWSStream(conn *websocket.Conn, maxFrameSize uint32) *wsStream {
	conn.SetReadLimit(int64(maxFrameSize))
	return &wsStream{
		Conn:         conn,
		maxFrameSize: maxFrameSize,
	}
}

func (s *wsStream) WriteRecord(payload []byte) error {
	if uint64(len(payload)) > uint64(s.maxFrameSize) {
		return merr.WrapErrFrameTooLarge(uint32(min(uint64(len(payload)), uint64(^uint32(0)))), s.maxFrameSize)
	}
	if err := s.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return merr.WrapErrIoFailed("websocket write", err)
	}
	return nil
}

func (s *wsStream) ReadRecord() ([]byte, error) {
	mt, data, err := s.ReadMessage()
	if err != nil {
		switch {
		case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			return nil, merr.WrapErrConnectionClosed(s.RemoteAddr().String())
		case errors.Is(err, websocket.ErrReadLimit):
			return nil, merr.WrapErrFrameTooLarge(s.maxFrameSize+1, s.maxFrameSize)
		default:
			return nil, merr.WrapErrIoFailed("websocket read", err)
		}
	}
	if mt != websocket.BinaryMessage {
		return nil, merr.WrapErrInvalidValue("websocket message type", mt)
	}
	return data, nil
}

// Close 先尝试发送关闭帧，再关闭底层连接。
func (s *wsStream) Close() error {
	_ = s.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.Conn.Close()
}
