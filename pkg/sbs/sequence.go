package sbs

// SliceCodec 以 8 字节计数加逐个元素的形式处理 []T，元素由 C 处理。
// 解码总是丢弃目标中原有的数据；计数为 0 时结果为 nil。
type SliceCodec[T any, C Codec[T]] struct{}

func (SliceCodec[T, C]) Archive(ar *Archive, v *[]T) error {
	var c C
	if ar.IsWriting() {
		s := *v
		if err := writeCount(ar, len(s)); err != nil {
			return err
		}
		for i := range s {
			if err := c.Archive(ar, &s[i]); err != nil {
				return err
			}
		}
		return nil
	}

	*v = nil
	n, err := readCount(ar)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	out := make([]T, 0, min(n, maxPrealloc))
	for i := 0; i < n; i++ {
		var elem T
		if err := c.Archive(ar, &elem); err != nil {
			return err
		}
		out = append(out, elem)
	}
	*v = out
	return nil
}

// Array 逐个处理定长序列中的元素，不写计数，例如 Array[ScalarCodec[int32]](ar, arr[:])。
// 读模式下直接写入 elems 的底层存储。
func Array[C Codec[T], T any](ar *Archive, elems []T) error {
	var c C
	for i := range elems {
		if err := c.Archive(ar, &elems[i]); err != nil {
			return err
		}
	}
	return nil
}
