package sbs

import (
	"encoding/binary"
	"strings"
	"unsafe"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Scalar 是可以由基本编解码器直接处理的定长数值类型。
// 以这些类型为底层类型的自定义类型（枚举）同样适用。
// int、uint、uintptr 的宽度依赖平台，bool 由 BoolCodec 处理，均不在此列。
type Scalar interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ByteOrder 表示线上数值的字节序，默认小端。
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
	// NativeEndian 在构造 Archive 时被解析为当前平台的字节序。
	NativeEndian
)

var nativeOrder = detectNativeOrder()

func detectNativeOrder() ByteOrder {
	if binary.NativeEndian.Uint16([]byte{0x01, 0x00}) == 0x0001 {
		return LittleEndian
	}
	return BigEndian
}

func (o ByteOrder) resolve() ByteOrder {
	switch o {
	case BigEndian:
		return BigEndian
	case NativeEndian:
		return nativeOrder
	default:
		return LittleEndian
	}
}

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	case NativeEndian:
		return "native"
	default:
		return "unknown"
	}
}

// ParseByteOrder 解析配置中的字节序名称，空字符串视为小端。
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little", "le", "little_endian":
		return LittleEndian, nil
	case "big", "be", "big_endian":
		return BigEndian, nil
	case "native":
		return NativeEndian, nil
	default:
		return LittleEndian, merr.WrapErrParameterInvalidMsg("unknown byte order %q", s)
	}
}

// Value 编码或解码一个定长数值。
func Value[T Scalar](ar *Archive, v *T) error {
	if ar.mode == Writing {
		return encodeScalar(ar, *v)
	}
	return decodeScalar(ar, v)
}

// ValueCopy 编码一个临时数值，例如 uint64(len(s))。只能在写模式下使用。
func ValueCopy[T Scalar](ar *Archive, v T) error {
	if err := ar.mustWrite("value copy"); err != nil {
		return err
	}
	return encodeScalar(ar, v)
}

// ScalarCodec 把基本编解码器包装成可以作为容器元素策略的 Codec。
type ScalarCodec[T Scalar] struct{}

func (ScalarCodec[T]) Archive(ar *Archive, v *T) error {
	return Value(ar, v)
}

// encodeScalar 复制 v 的原生内存映像，必要时翻转字节序后写出。
// 整个过程不经过任何浮点转换，NaN 负载与符号位保持原样。
func encodeScalar[T Scalar](ar *Archive, v T) error {
	size := int(unsafe.Sizeof(v))
	buf := ar.scratch[:size]
	copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(&v)), size))
	if ar.swap {
		reverse(buf)
	}
	return ar.sink.Push(buf)
}

// decodeScalar 读取 sizeof(T) 个字节并按 T 的内存映像写入 v。
// 通道返回的切片可能属于调用方，因此先拷贝再翻转。
func decodeScalar[T Scalar](ar *Archive, v *T) error {
	size := int(unsafe.Sizeof(*v))
	p, err := ar.pull(size)
	if err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(v)), size)
	copy(dst, p)
	if ar.swap {
		reverse(dst)
	}
	return nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
