package sbs

import (
	"math/bits"
)

// Bitset 是位数在构造时确定的位集合。
type Bitset struct {
	n     int
	bytes []byte
}

func NewBitset(n int) *Bitset {
	if n < 0 {
		n = 0
	}
	return &Bitset{n: n, bytes: make([]byte, (n+7)/8)}
}

// Len 返回位数。
func (b *Bitset) Len() int {
	return b.n
}

// Set 设置第 i 位，越界时忽略。
func (b *Bitset) Set(i int, on bool) {
	if i < 0 || i >= b.n {
		return
	}
	if on {
		b.bytes[i/8] |= 1 << (i % 8)
	} else {
		b.bytes[i/8] &^= 1 << (i % 8)
	}
}

func (b *Bitset) Test(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.bytes[i/8]&(1<<(i%8)) != 0
}

// Count 返回被置位的位数。
func (b *Bitset) Count() int {
	c := 0
	for _, x := range b.bytes {
		c += bits.OnesCount8(x)
	}
	return c
}

func (b *Bitset) Reset() {
	clear(b.bytes)
}

func (b *Bitset) Equal(other *Bitset) bool {
	if b.n != other.n {
		return false
	}
	for i := range b.bytes {
		if b.bytes[i] != other.bytes[i] {
			return false
		}
	}
	return true
}

// BitsetCodec 把位集合打包为 ceil(n/8) 个字节，低位在前，不写计数。
// 读取端的位集合必须与写出端具有相同的位数。
type BitsetCodec struct{}

func (BitsetCodec) Archive(ar *Archive, v *Bitset) error {
	if ar.IsWriting() {
		return ar.push(v.bytes)
	}

	if len(v.bytes) == 0 {
		return nil
	}
	p, err := ar.pull(len(v.bytes))
	if err != nil {
		return err
	}
	copy(v.bytes, p)
	// 末字节中超出位数的部分不属于位集合。
	if rem := v.n % 8; rem != 0 {
		v.bytes[len(v.bytes)-1] &= byte(1<<rem) - 1
	}
	return nil
}
