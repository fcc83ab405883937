package sbs

import (
	"path/filepath"
)

// PathCodec 处理文件系统路径：线上统一使用正斜杠，解码后转换为当前系统的分隔符。
type PathCodec struct{}

func (PathCodec) Archive(ar *Archive, v *string) error {
	var sc StringCodec
	if ar.IsWriting() {
		p := filepath.ToSlash(*v)
		return sc.Archive(ar, &p)
	}

	var p string
	if err := sc.Archive(ar, &p); err != nil {
		return err
	}
	*v = filepath.FromSlash(p)
	return nil
}
