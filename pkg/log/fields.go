package log

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

const (
	FieldNameModule    = "module"
	FieldNameComponent = "component"
	FieldNameConnID    = "connID"
	FieldNameRemote    = "remote"
)

// FieldModule 返回一个包含模块名的 zap 字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldComponent 返回一个包含组件名的 zap 字段。
func FieldComponent(component string) zap.Field {
	return zap.String(FieldNameComponent, component)
}

// FieldRemote 返回一个包含对端地址的 zap 字段。
func FieldRemote(addr net.Addr) zap.Field {
	if addr == nil {
		return zap.Skip()
	}
	return zap.String(FieldNameRemote, addr.String())
}

// FieldByteOrder 返回一个包含字节序名称的 zap 字段。
func FieldByteOrder(order fmt.Stringer) zap.Field {
	return zap.Stringer("byteOrder", order)
}
