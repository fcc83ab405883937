// Package sbs 实现了一个基于遍历的二进制序列化引擎。
//
// 同一段遍历代码既负责写出也负责读回：调用方构造一个写模式或读模式的 Archive，
// 然后按固定顺序对每个字段调用 Value / Object / With / Call，
// 引擎根据 Archive 的模式决定编码还是解码。
//
// 线上格式没有任何类型标记或头部：
//   - 定长数值按指定字节序写出其原始内存映像；
//   - 变长实体（字符串、切片、映射、集合、可选值、联合体）前置 8 字节无符号计数或分支下标；
//   - 定长聚合（数组、Pair、Triple、Bitset、结构体）不带任何前缀。
//
// 一个 Archive 及其绑定的通道只属于一次遍历、一个 goroutine。
package sbs

import (
	"math"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Mode 表示 Archive 的方向，构造后不可改变。
type Mode uint8

const (
	Writing Mode = iota
	Reading
)

func (m Mode) String() string {
	switch m {
	case Writing:
		return "writing"
	case Reading:
		return "reading"
	default:
		return "unknown"
	}
}

// maxChunk 为读取变长字节块时单次 Pull 的上限，
// 避免被伪造的超大计数一次性撑爆内存。
const maxChunk = 64 * 1024

// maxPrealloc 为解码容器时预分配元素个数的上限。
const maxPrealloc = 1024

// Archive 是一次遍历的上下文，持有方向、字节序以及绑定的通道。
// Archive 本身不拥有任何数据，只借用通道。
type Archive struct {
	mode  Mode
	order ByteOrder
	swap  bool

	sink Sink
	src  Source

	// scratch 用于编码标量，Sink 不会在 Push 返回后继续持有它。
	scratch [8]byte
}

// NewWriter 创建一个绑定到 sink 的写模式 Archive。
func NewWriter(sink Sink, order ByteOrder) *Archive {
	order = order.resolve()
	return &Archive{
		mode:  Writing,
		order: order,
		swap:  order != nativeOrder,
		sink:  sink,
	}
}

// NewReader 创建一个绑定到 src 的读模式 Archive。
func NewReader(src Source, order ByteOrder) *Archive {
	order = order.resolve()
	return &Archive{
		mode:  Reading,
		order: order,
		swap:  order != nativeOrder,
		src:   src,
	}
}

func (ar *Archive) Mode() Mode {
	return ar.mode
}

// Order 返回解析后的字节序，NativeEndian 会被解析为具体的大端或小端。
func (ar *Archive) Order() ByteOrder {
	return ar.order
}

func (ar *Archive) IsWriting() bool {
	return ar.mode == Writing
}

func (ar *Archive) IsReading() bool {
	return ar.mode == Reading
}

func (ar *Archive) push(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return ar.sink.Push(p)
}

// pull 向通道请求恰好 n 个字节，并校验通道确实返回了 n 个字节。
func (ar *Archive) pull(n int) ([]byte, error) {
	p, err := ar.src.Pull(n)
	if err != nil {
		return nil, err
	}
	if len(p) != n {
		return nil, merr.WrapErrUnderrun(n, len(p))
	}
	return p, nil
}

func (ar *Archive) mustWrite(op string) error {
	if ar.mode != Writing {
		return merr.WrapErrModeMismatch(Writing.String(), ar.mode.String(), op)
	}
	return nil
}

// writeCount 写出 8 字节的元素个数。
func writeCount(ar *Archive, n int) error {
	return encodeScalar(ar, uint64(n))
}

// readCount 读取 8 字节的元素个数，超出 int 表示范围的计数视为非法值。
func readCount(ar *Archive) (int, error) {
	var n uint64
	if err := decodeScalar(ar, &n); err != nil {
		return 0, err
	}
	if n > math.MaxInt {
		return 0, merr.WrapErrInvalidValue("count", n)
	}
	return int(n), nil
}

// readBytes 分块读取 n 个字节并返回一份独立的拷贝。
// 内存只随实际到达的数据增长。
func readBytes(ar *Archive, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, 0, min(n, maxChunk))
	for len(out) < n {
		chunk := min(n-len(out), maxChunk)
		p, err := ar.pull(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
	return out, nil
}
