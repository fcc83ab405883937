package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPut(t *testing.T) {
	rb := Get()
	require.NotNil(t, rb)
	assert.True(t, rb.IsEmpty())

	_, err := rb.Write([]byte("record"))
	require.NoError(t, err)
	Put(rb)

	rb = Get()
	assert.True(t, rb.IsEmpty())
	assert.Equal(t, 0, rb.Buffered())
	Put(rb)
	Put(nil)
}

func TestPoolRetention(t *testing.T) {
	p := NewPool(64, 256)

	small := p.Get()
	assert.Equal(t, 64, small.Cap())
	p.Put(small)

	big := p.Get()
	_, err := big.Write(make([]byte, 1024))
	require.NoError(t, err)
	require.Greater(t, big.Cap(), 256)
	p.Put(big)

	assert.Equal(t, Stats{Gets: 2, Drops: 1}, p.Stats())

	unbounded := NewPool(8, 0)
	huge := unbounded.Get()
	_, err = huge.Write(make([]byte, 4096))
	require.NoError(t, err)
	unbounded.Put(huge)
	assert.Zero(t, unbounded.Stats().Drops)
}
