package sbs

import (
	"bytes"
	"slices"

	"github.com/samber/lo"

	"github.com/lk2023060901/sbs-go/pkg/util/typeutil"
)

// MapCodec 以 8 字节计数加 (键, 值) 对的形式处理 map[K]V。
// 写出时按键编码后的字节排序，相同内容的映射在任何进程中都得到相同的字节。
// 解码总是生成一个新的非 nil 映射。
type MapCodec[K comparable, V any, KC Codec[K], VC Codec[V]] struct{}

func (MapCodec[K, V, KC, VC]) Archive(ar *Archive, v *map[K]V) error {
	var (
		kc KC
		vc VC
	)
	if ar.IsWriting() {
		m := *v
		keys, err := sortByEncoding[K, KC](ar.order, lo.Keys(m))
		if err != nil {
			return err
		}
		if err := writeCount(ar, len(keys)); err != nil {
			return err
		}
		for _, key := range keys {
			if err := ar.push(key.encoded); err != nil {
				return err
			}
			value := m[key.value]
			if err := vc.Archive(ar, &value); err != nil {
				return err
			}
		}
		return nil
	}

	n, err := readCount(ar)
	if err != nil {
		return err
	}
	out := make(map[K]V, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		var (
			key   K
			value V
		)
		if err := kc.Archive(ar, &key); err != nil {
			return err
		}
		if err := vc.Archive(ar, &value); err != nil {
			return err
		}
		out[key] = value
	}
	*v = out
	return nil
}

// SetCodec 以 8 字节计数加元素的形式处理 typeutil.Set[T]，元素按编码后的字节排序写出。
// 解码总是生成一个新的非 nil 集合。
type SetCodec[T comparable, C Codec[T]] struct{}

func (SetCodec[T, C]) Archive(ar *Archive, v *typeutil.Set[T]) error {
	var c C
	if ar.IsWriting() {
		elems, err := sortByEncoding[T, C](ar.order, (*v).Collect())
		if err != nil {
			return err
		}
		if err := writeCount(ar, len(elems)); err != nil {
			return err
		}
		for _, elem := range elems {
			if err := ar.push(elem.encoded); err != nil {
				return err
			}
		}
		return nil
	}

	n, err := readCount(ar)
	if err != nil {
		return err
	}
	out := make(typeutil.Set[T], min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		var elem T
		if err := c.Archive(ar, &elem); err != nil {
			return err
		}
		out.Insert(elem)
	}
	*v = out
	return nil
}

type encodedItem[T any] struct {
	value   T
	encoded []byte
}

// sortByEncoding 用策略 C 以给定字节序编码每个元素，并按编码结果排序。
// 写出时直接推送编码结果，与重新编码得到的字节完全一致。
func sortByEncoding[T any, C Codec[T]](order ByteOrder, items []T) ([]encodedItem[T], error) {
	var c C
	sink := NewBytesSink(0)
	ar := NewWriter(sink, order)

	out := make([]encodedItem[T], 0, len(items))
	offsets := make([]int, 0, len(items)+1)
	for i := range items {
		offsets = append(offsets, sink.Len())
		if err := c.Archive(ar, &items[i]); err != nil {
			return nil, err
		}
	}
	offsets = append(offsets, sink.Len())

	buf := sink.Bytes()
	for i := range items {
		out = append(out, encodedItem[T]{
			value:   items[i],
			encoded: buf[offsets[i]:offsets[i+1]:offsets[i+1]],
		})
	}
	slices.SortStableFunc(out, func(a, b encodedItem[T]) int {
		return bytes.Compare(a.encoded, b.encoded)
	})
	return out, nil
}
