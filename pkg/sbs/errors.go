package sbs

import (
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// 遍历过程中可能出现的错误，均可通过 errors.Is 判断。
var (
	// ErrUnderrun 表示读通道无法提供请求的字节数：记录被截断，或读写双方的遍历顺序不一致。
	ErrUnderrun = merr.ErrUnderrun
	// ErrIO 表示底层文件或传输层打开、读取、写入失败。
	ErrIO = merr.ErrIoFailed
	// ErrModeMismatch 表示在读模式下调用了只能写模式使用的入口。
	ErrModeMismatch = merr.ErrModeMismatch
	// ErrInvalidValue 表示解码得到的布尔值、存在标记或分支下标不合法。
	ErrInvalidValue = merr.ErrInvalidValue
	// ErrTrailingBytes 表示严格模式下记录之后仍有剩余字节。
	ErrTrailingBytes = merr.ErrTrailingBytes
	// ErrValidation 由自定义策略在拒绝某个取值时返回。
	ErrValidation = merr.ErrValidation

	// ErrInvalidParameter 表示调用参数不合法，例如未知的字节序名称。
	ErrInvalidParameter = merr.ErrParameterInvalid
)

// Reject 供自定义策略拒绝字段取值，返回的错误满足 errors.Is(err, ErrValidation)。
func Reject(field, reason string) error {
	return merr.WrapErrValidation(field, reason)
}
