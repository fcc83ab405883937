package sbs

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Sink 是写通道。Push 返回后不得继续持有 p。
type Sink interface {
	Push(p []byte) error
}

// Source 是读通道。Pull 必须返回恰好 n 个字节，否则返回 ErrUnderrun。
// 返回的切片只在下一次 Pull 之前有效。
type Source interface {
	Pull(n int) ([]byte, error)
}

// SinkFunc 把调用方提供的写回调适配为 Sink，可用于任意传输层。
type SinkFunc func(p []byte) error

func (f SinkFunc) Push(p []byte) error {
	return f(p)
}

// SourceFunc 把调用方提供的读回调适配为 Source。
// 回调返回的字节数与请求不一致时视为 ErrUnderrun。
type SourceFunc func(n int) ([]byte, error)

func (f SourceFunc) Pull(n int) ([]byte, error) {
	p, err := f(n)
	if err != nil {
		return nil, err
	}
	if len(p) != n {
		return nil, merr.WrapErrUnderrun(n, len(p))
	}
	return p, nil
}

// BytesSink 是内存累加器。
type BytesSink struct {
	buf []byte
}

func NewBytesSink(capacity int) *BytesSink {
	return &BytesSink{buf: make([]byte, 0, capacity)}
}

func (s *BytesSink) Push(p []byte) error {
	s.buf = append(s.buf, p...)
	return nil
}

// Bytes 返回已累加的数据，调用方不应在继续写入后持有它。
func (s *BytesSink) Bytes() []byte {
	return s.buf
}

func (s *BytesSink) Len() int {
	return len(s.buf)
}

func (s *BytesSink) Reset() {
	s.buf = s.buf[:0]
}

// countingSink 只统计字节数，用于 Size。
type countingSink struct {
	n int
}

func (s *countingSink) Push(p []byte) error {
	s.n += len(p)
	return nil
}

// SliceSource 是字节切片上的游标，只能从左向右前进，从不回退。
type SliceSource struct {
	data []byte
	off  int
}

func NewSliceSource(data []byte) *SliceSource {
	return &SliceSource{data: data}
}

func (s *SliceSource) Pull(n int) ([]byte, error) {
	if n < 0 {
		return nil, merr.WrapErrParameterInvalidMsg("negative pull size %d", n)
	}
	if remain := len(s.data) - s.off; remain < n {
		return nil, merr.WrapErrUnderrun(n, remain)
	}
	p := s.data[s.off : s.off+n : s.off+n]
	s.off += n
	return p, nil
}

// Remaining 返回尚未读取的字节数。
func (s *SliceSource) Remaining() int {
	return len(s.data) - s.off
}

// WriterSink 把任意 io.Writer 适配为 Sink，写失败映射为 ErrIO。
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Push(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return merr.WrapErrIoFailed("write", err)
	}
	return nil
}

// ReaderSource 把任意 io.Reader 适配为 Source。
// 数据被读入可复用的暂存区；读到流末尾映射为 ErrUnderrun，其它失败映射为 ErrIO。
type ReaderSource struct {
	r       io.Reader
	staging []byte
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Pull(n int) ([]byte, error) {
	if n < 0 {
		return nil, merr.WrapErrParameterInvalidMsg("negative pull size %d", n)
	}
	if cap(s.staging) < n {
		s.staging = make([]byte, n)
	}
	buf := s.staging[:n]
	got, err := io.ReadFull(s.r, buf)
	if err != nil {
		if errors.IsAny(err, io.EOF, io.ErrUnexpectedEOF) {
			return nil, merr.WrapErrUnderrun(n, got)
		}
		return nil, merr.WrapErrIoFailed("read", err)
	}
	return buf, nil
}
