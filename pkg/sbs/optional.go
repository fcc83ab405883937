package sbs

import (
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Optional 表示一个可能不存在的值，零值为不存在。
type Optional[T any] struct {
	value T
	valid bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, valid: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.valid
}

func (o Optional[T]) IsPresent() bool {
	return o.valid
}

// OrElse 在值不存在时返回 def。
func (o Optional[T]) OrElse(def T) T {
	if !o.valid {
		return def
	}
	return o.value
}

func (o *Optional[T]) Set(v T) {
	o.value = v
	o.valid = true
}

func (o *Optional[T]) Reset() {
	*o = Optional[T]{}
}

// OptionalCodec 先写 8 字节存在标记（0 或 1），存在时再写负载。
type OptionalCodec[T any, C Codec[T]] struct{}

func (OptionalCodec[T, C]) Archive(ar *Archive, v *Optional[T]) error {
	var c C
	if ar.IsWriting() {
		if err := writePresence(ar, v.valid); err != nil {
			return err
		}
		if !v.valid {
			return nil
		}
		return c.Archive(ar, &v.value)
	}

	v.Reset()
	present, err := readPresence(ar)
	if err != nil || !present {
		return err
	}
	var value T
	if err := c.Archive(ar, &value); err != nil {
		return err
	}
	v.Set(value)
	return nil
}

// PointerCodec 以与 OptionalCodec 相同的格式处理独占的 *T：nil 表示不存在。
// 解码时为存在的值分配新的对象。
type PointerCodec[T any, C Codec[T]] struct{}

func (PointerCodec[T, C]) Archive(ar *Archive, v **T) error {
	var c C
	if ar.IsWriting() {
		if err := writePresence(ar, *v != nil); err != nil {
			return err
		}
		if *v == nil {
			return nil
		}
		return c.Archive(ar, *v)
	}

	*v = nil
	present, err := readPresence(ar)
	if err != nil || !present {
		return err
	}
	p := new(T)
	if err := c.Archive(ar, p); err != nil {
		return err
	}
	*v = p
	return nil
}

func writePresence(ar *Archive, present bool) error {
	var flag uint64
	if present {
		flag = 1
	}
	return encodeScalar(ar, flag)
}

func readPresence(ar *Archive) (bool, error) {
	var flag uint64
	if err := decodeScalar(ar, &flag); err != nil {
		return false, err
	}
	if flag > 1 {
		return false, merr.WrapErrInvalidValue("presence", flag)
	}
	return flag == 1, nil
}
