package sbs

// 策略解析按调用入口区分，每一层都有自己的泛型约束，
// 不可序列化的类型在编译期就会被拒绝：
//   - With / Copy：显式指定的 Codec，优先级最高；
//   - Value / ValueCopy：定长数值；
//   - Object：实现了 Serializable 的类型；
//   - Call：与类型关联的自由函数 Func。

// Codec 是一个无状态的编解码策略，零值即可使用。
// 同一个 Archive 方法既负责写出也负责读回，通过 ar.IsWriting() 区分方向。
type Codec[T any] interface {
	Archive(ar *Archive, v *T) error
}

// Serializable 由需要自描述遍历的类型在指针接收者上实现。
// 实现方按固定顺序对每个字段调用 Value / Object / With / Call。
type Serializable interface {
	Serialize(ar *Archive) error
}

// Func 是与某个类型关联的自由遍历函数，适用于无法为其添加方法的类型。
// 需要作为类型参数使用时，用一个空结构体 Codec 包装它。
type Func[T any] func(ar *Archive, v *T) error

// Object 调用 v 的 Serialize 方法。
func Object(ar *Archive, v Serializable) error {
	return v.Serialize(ar)
}

// ObjectCodec 把 Serializable 类型包装成可以作为容器元素策略的 Codec。
type ObjectCodec[T any, P interface {
	*T
	Serializable
}] struct{}

func (ObjectCodec[T, P]) Archive(ar *Archive, v *T) error {
	return P(v).Serialize(ar)
}

// With 使用显式指定的策略 C 处理 v。
func With[C Codec[T], T any](ar *Archive, v *T) error {
	var c C
	return c.Archive(ar, v)
}

// Copy 使用策略 C 编码一个临时值。只能在写模式下使用。
func Copy[C Codec[T], T any](ar *Archive, v T) error {
	if err := ar.mustWrite("copy"); err != nil {
		return err
	}
	var c C
	return c.Archive(ar, &v)
}

// Call 使用自由函数 fn 处理 v。
func Call[T any](ar *Archive, v *T, fn Func[T]) error {
	return fn(ar, v)
}
