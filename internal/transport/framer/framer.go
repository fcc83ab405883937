package framer

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// HeaderSize 为帧头长度。
const HeaderSize = 4

const defaultMaxFrameSize uint32 = 16 * 1024 * 1024 // 16MB

// Framer 抽象了记录的打包/解包能力。
//
// 约定：
//   - 一帧数据的格式为：4 字节大端无符号整型（负载长度）+ 负载。
//   - 负载为一条完整的 sbs 记录，帧层不关心其内容。
type Framer interface {
	// WriteFrame 将 payload 打包为一帧并写入到 w 中。
	WriteFrame(w io.Writer, payload []byte) error

	// ReadFrame 从 r 中读取一帧并返回负载。
	// 在帧边界处遇到流结束时返回 io.EOF。
	ReadFrame(r io.Reader) ([]byte, error)
}

// LengthPrefixedFramer 使用长度前缀（4 字节大端）作为帧边界。
// 适用于基于流的连接（如 TCP）。
type LengthPrefixedFramer struct {
	// MaxFrameSize 为允许的最大负载长度，单位字节。
	// 为 0 时使用默认值 defaultMaxFrameSize。
	MaxFrameSize uint32
}

var _ Framer = (*LengthPrefixedFramer)(nil)

// NewLengthPrefixedFramer 创建一个长度前缀帧编码器。
// maxFrameSize 为 0 时使用默认值。
func NewLengthPrefixedFramer(maxFrameSize uint32) *LengthPrefixedFramer {
	if maxFrameSize == 0 {
		maxFrameSize = defaultMaxFrameSize
	}
	return &LengthPrefixedFramer{
		MaxFrameSize: maxFrameSize,
	}
}

// WriteFrame 将 payload 编码为长度前缀帧并一次性写入。
func (f *LengthPrefixedFramer) WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > uint64(f.effectiveMaxSize()) {
		return merr.WrapErrFrameTooLarge(uint32(min(uint64(len(payload)), uint64(^uint32(0)))), f.effectiveMaxSize())
	}

	// 帧头与负载合并写出，避免在同一连接上被其他写入打断。
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[HeaderSize:], payload)

	if _, err := w.Write(frame); err != nil {
		return merr.WrapErrIoFailed("framer write", err)
	}
	return nil
}

// ReadFrame 从流中读取一帧数据。
func (f *LengthPrefixedFramer) ReadFrame(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if n, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, merr.WrapErrUnderrun(HeaderSize, n, "framer header")
		}
		return nil, merr.WrapErrIoFailed("framer read header", err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > f.effectiveMaxSize() {
		return nil, merr.WrapErrFrameTooLarge(length, f.effectiveMaxSize())
	}

	payload := make([]byte, length)
	if length == 0 {
		return payload, nil
	}
	if n, err := io.ReadFull(r, payload); err != nil {
		if errors.IsAny(err, io.EOF, io.ErrUnexpectedEOF) {
			return nil, merr.WrapErrUnderrun(int(length), n, "framer body")
		}
		return nil, merr.WrapErrIoFailed("framer read body", err)
	}
	return payload, nil
}

func (f *LengthPrefixedFramer) effectiveMaxSize() uint32 {
	if f == nil || f.MaxFrameSize == 0 {
		return defaultMaxFrameSize
	}
	return f.MaxFrameSize
}
