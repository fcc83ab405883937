package framer

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

func TestRoundTrip(t *testing.T) {
	f := NewLengthPrefixedFramer(0)
	var buf bytes.Buffer

	require.NoError(t, f.WriteFrame(&buf, []byte{1, 2, 3}))
	require.NoError(t, f.WriteFrame(&buf, nil))
	assert.Equal(t, []byte{0, 0, 0, 3, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	r := iotest.OneByteReader(&buf)
	p, err := f.ReadFrame(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p)

	p, err = f.ReadFrame(r)
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = f.ReadFrame(r)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	f := NewLengthPrefixedFramer(4)

	var buf bytes.Buffer
	err := f.WriteFrame(&buf, make([]byte, 5))
	assert.ErrorIs(t, err, merr.ErrFrameTooLarge)
	assert.Zero(t, buf.Len())

	_, err = f.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 5, 1, 2, 3, 4, 5}))
	assert.ErrorIs(t, err, merr.ErrFrameTooLarge)
}

func TestTruncatedFrame(t *testing.T) {
	f := NewLengthPrefixedFramer(0)

	_, err := f.ReadFrame(bytes.NewReader([]byte{0, 0}))
	assert.ErrorIs(t, err, merr.ErrUnderrun)
	assert.Equal(t, merr.WrapErrUnderrun(HeaderSize, 2, "framer header").Error(), err.Error())

	_, err = f.ReadFrame(bytes.NewReader([]byte{0, 0, 0}))
	assert.Equal(t, merr.WrapErrUnderrun(HeaderSize, 3, "framer header").Error(), err.Error())

	_, err = f.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 4, 9, 9}))
	assert.ErrorIs(t, err, merr.ErrUnderrun)
	assert.Equal(t, merr.WrapErrUnderrun(4, 2, "framer body").Error(), err.Error())
}

func TestIOErrors(t *testing.T) {
	f := NewLengthPrefixedFramer(0)
	boom := io.ErrClosedPipe

	_, err := f.ReadFrame(iotest.ErrReader(boom))
	assert.ErrorIs(t, err, merr.ErrIoFailed)

	pr, pw := io.Pipe()
	require.NoError(t, pr.Close())
	err = f.WriteFrame(pw, []byte{1})
	assert.ErrorIs(t, err, merr.ErrIoFailed)
}

func TestZeroFramer(t *testing.T) {
	var f *LengthPrefixedFramer
	assert.Equal(t, defaultMaxFrameSize, f.effectiveMaxSize())
}
