package sbs

import (
	"bufio"
	"io"
	"os"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// DefaultFileBufferSize 为文件通道默认的缓冲区大小。
const DefaultFileBufferSize = 32 * 1024

// FileSink 是写入文件的通道，Close 时刷新缓冲并关闭文件。
type FileSink struct {
	f  *os.File
	bw *bufio.Writer
	WriterSink
}

// CreateFileSink 以二进制方式创建（或截断）path。
func CreateFileSink(path string, bufSize int) (*FileSink, error) {
	if bufSize <= 0 {
		bufSize = DefaultFileBufferSize
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, merr.WrapErrIoFailed(path, err)
	}
	w := bufio.NewWriterSize(f, bufSize)
	return &FileSink{f: f, bw: w, WriterSink: WriterSink{w: w}}, nil
}

func (s *FileSink) Close() error {
	flushErr := s.bw.Flush()
	closeErr := s.f.Close()
	if err := merr.Combine(flushErr, closeErr); err != nil {
		return merr.WrapErrIoFailed(s.f.Name(), err)
	}
	return nil
}

// FileSource 是读取文件的通道。
type FileSource struct {
	f  *os.File
	br *bufio.Reader
	ReaderSource
}

// OpenFileSource 以二进制方式打开 path。
func OpenFileSource(path string, bufSize int) (*FileSource, error) {
	if bufSize <= 0 {
		bufSize = DefaultFileBufferSize
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, merr.WrapErrIoFailed(path, err)
	}
	r := bufio.NewReaderSize(f, bufSize)
	return &FileSource{f: f, br: r, ReaderSource: ReaderSource{r: r}}, nil
}

// Trailing 读完文件剩余内容并返回其字节数。
func (s *FileSource) Trailing() (int64, error) {
	n, err := io.Copy(io.Discard, s.br)
	if err != nil {
		return n, merr.WrapErrIoFailed(s.f.Name(), err)
	}
	return n, nil
}

func (s *FileSource) Close() error {
	return merr.WrapErrIoFailed(s.f.Name(), s.f.Close())
}
