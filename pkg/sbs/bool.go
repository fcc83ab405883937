package sbs

import (
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// BoolCodec 以单字节 0/1 处理 bool，解码时拒绝其它取值。
type BoolCodec struct{}

func (BoolCodec) Archive(ar *Archive, v *bool) error {
	if ar.IsWriting() {
		var b uint8
		if *v {
			b = 1
		}
		return encodeScalar(ar, b)
	}

	var b uint8
	if err := decodeScalar(ar, &b); err != nil {
		return err
	}
	if b > 1 {
		return merr.WrapErrInvalidValue("bool", b)
	}
	*v = b == 1
	return nil
}
