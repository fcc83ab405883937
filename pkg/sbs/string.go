package sbs

// StringCodec 以 8 字节长度加原始字节的形式处理 string。
type StringCodec struct{}

func (StringCodec) Archive(ar *Archive, v *string) error {
	if ar.IsWriting() {
		if err := writeCount(ar, len(*v)); err != nil {
			return err
		}
		return ar.push([]byte(*v))
	}

	n, err := readCount(ar)
	if err != nil {
		return err
	}
	b, err := readBytes(ar, n)
	if err != nil {
		return err
	}
	*v = string(b)
	return nil
}

// BytesCodec 以 8 字节长度加原始字节的形式处理 []byte。
// 长度为 0 时解码结果为 nil。
type BytesCodec struct{}

func (BytesCodec) Archive(ar *Archive, v *[]byte) error {
	if ar.IsWriting() {
		if err := writeCount(ar, len(*v)); err != nil {
			return err
		}
		return ar.push(*v)
	}

	n, err := readCount(ar)
	if err != nil {
		return err
	}
	b, err := readBytes(ar, n)
	if err != nil {
		return err
	}
	*v = b
	return nil
}
