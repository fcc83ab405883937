package sbs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]byte{1, 2, 3, 4, 5})
	p, err := src.Pull(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, p)
	assert.Equal(t, 3, src.Remaining())

	_, err = src.Pull(4)
	assert.ErrorIs(t, err, ErrUnderrun)
	// 失败的 Pull 不会移动游标。
	assert.Equal(t, 3, src.Remaining())

	p, err = src.Pull(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5}, p)
	assert.Equal(t, 0, src.Remaining())

	_, err = src.Pull(-1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestBytesSink(t *testing.T) {
	sink := NewBytesSink(4)
	chunk := []byte{1, 2}
	require.NoError(t, sink.Push(chunk))
	chunk[0] = 9
	require.NoError(t, sink.Push([]byte{3}))
	assert.Equal(t, []byte{1, 2, 3}, sink.Bytes())
	assert.Equal(t, 3, sink.Len())

	sink.Reset()
	assert.Equal(t, 0, sink.Len())
}

func TestReaderSource(t *testing.T) {
	// OneByteReader 每次只返回一个字节，ReaderSource 仍须凑齐请求的字节数。
	src := NewReaderSource(iotest.OneByteReader(bytes.NewReader([]byte{0xEB, 0x17, 0x01})))
	var v uint16
	require.NoError(t, Value(NewReader(src, LittleEndian), &v))
	assert.Equal(t, uint16(6123), v)

	_, err := src.Pull(2)
	assert.ErrorIs(t, err, ErrUnderrun)

	failing := NewReaderSource(iotest.ErrReader(errors.New("connection reset")))
	_, err = failing.Pull(1)
	assert.ErrorIs(t, err, ErrIO)
}

func TestWriterSinkError(t *testing.T) {
	in := innerRecord{I1: 1}
	err := SerializeToWriter(failingWriter{}, &in)
	assert.ErrorIs(t, err, ErrIO)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestSourceFuncLength(t *testing.T) {
	short := SourceFunc(func(n int) ([]byte, error) {
		return make([]byte, n-1), nil
	})
	var v uint32
	assert.ErrorIs(t, Value(NewReader(short, LittleEndian), &v), ErrUnderrun)
}

func TestPipe(t *testing.T) {
	pipe := NewPipe()
	defer pipe.Close()

	in := newKitchenSink()
	require.NoError(t, Object(NewWriter(pipe, BigEndian), &in))
	size, err := Size(&in)
	require.NoError(t, err)
	assert.Equal(t, size, pipe.Buffered())

	var out kitchenSink
	require.NoError(t, Object(NewReader(pipe, BigEndian), &out))
	assert.Equal(t, in, out)
	assert.Equal(t, 0, pipe.Buffered())

	_, err = pipe.Pull(1)
	assert.ErrorIs(t, err, ErrUnderrun)

	pipe.Close()
	pipe.Close()
	assert.ErrorIs(t, pipe.Push([]byte{1}), ErrIO)
}

func TestCallbackDrivers(t *testing.T) {
	in := newKitchenSink()

	var wire bytes.Buffer
	chunks := 0
	err := SerializeUsingCallback(&in, func(p []byte) error {
		chunks++
		_, err := wire.Write(p)
		return err
	}, WithByteOrder(BigEndian))
	require.NoError(t, err)
	assert.Greater(t, chunks, 1)

	var out kitchenSink
	err = DeserializeUsingCallback(&out, func(n int) ([]byte, error) {
		p := wire.Next(n)
		if len(p) < n {
			return nil, ErrUnderrun
		}
		return p, nil
	}, WithByteOrder(BigEndian))
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 0, wire.Len())
}

func TestStreamDrivers(t *testing.T) {
	first := outerRecord{I1: 1, F: 2}
	second := outerRecord{I1: 3, F: 4}

	var buf bytes.Buffer
	require.NoError(t, SerializeToWriter(&buf, &first))
	require.NoError(t, SerializeToWriter(&buf, &second))
	assert.Equal(t, 68, buf.Len())

	// 连续读取两条记录，读取器不会越过记录边界。
	var a, b outerRecord
	require.NoError(t, DeserializeFromReader(&buf, &a))
	require.NoError(t, DeserializeFromReader(&buf, &b))
	assert.Equal(t, first, a)
	assert.Equal(t, second, b)

	var c outerRecord
	assert.ErrorIs(t, DeserializeFromReader(&buf, &c), ErrUnderrun)
}

func TestFileDrivers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.bin")

	in := newKitchenSink()
	require.NoError(t, SerializeToFile(path, &in, WithByteOrder(BigEndian), WithFileBufferSize(16)))

	expected, err := Marshal(&in, WithByteOrder(BigEndian))
	require.NoError(t, err)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, onDisk)

	var out kitchenSink
	require.NoError(t, DeserializeFromFile(path, &out, WithByteOrder(BigEndian), WithStrict()))
	assert.Equal(t, in, out)

	v := uint64(13244784333009251345)
	scalarPath := filepath.Join(dir, "scalar.bin")
	require.NoError(t, SerializeToFileWith[ScalarCodec[uint64]](scalarPath, &v))
	var outV uint64
	require.NoError(t, DeserializeFromFileWith[ScalarCodec[uint64]](scalarPath, &outV))
	assert.Equal(t, v, outV)
}

func TestFileDriverErrors(t *testing.T) {
	dir := t.TempDir()

	var out innerRecord
	err := DeserializeFromFile(filepath.Join(dir, "missing.bin"), &out)
	assert.ErrorIs(t, err, ErrIO)

	in := innerRecord{I1: 1}
	err = SerializeToFile(filepath.Join(dir, "no", "such", "dir.bin"), &in)
	assert.ErrorIs(t, err, ErrIO)

	path := filepath.Join(dir, "short.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))
	assert.ErrorIs(t, DeserializeFromFile(path, &out), ErrUnderrun)

	path = filepath.Join(dir, "long.bin")
	b, err := Marshal(&in)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(b, 0), 0o600))
	require.NoError(t, DeserializeFromFile(path, &out))
	assert.ErrorIs(t, DeserializeFromFile(path, &out, WithStrict()), ErrTrailingBytes)
}
