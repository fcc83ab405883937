package sbs

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

type options struct {
	order          ByteOrder
	strict         bool
	fileBufferSize int
}

// Option 用于配置驱动函数的行为。
type Option func(*options)

// WithByteOrder 指定线上字节序，默认小端。
func WithByteOrder(order ByteOrder) Option {
	return func(o *options) {
		o.order = order
	}
}

// WithStrict 要求解码后输入恰好被读完，否则返回 ErrTrailingBytes。
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithFileBufferSize 指定文件通道的缓冲区大小。
func WithFileBufferSize(n int) Option {
	return func(o *options) {
		o.fileBufferSize = n
	}
}

func newOptions(opts []Option) options {
	o := options{
		order:          LittleEndian,
		fileBufferSize: DefaultFileBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// traversal 是对根值的一次完整遍历。
type traversal func(ar *Archive) error

func objectTraversal(v Serializable) traversal {
	return v.Serialize
}

func codecTraversal[C Codec[T], T any](v *T) traversal {
	return func(ar *Archive) error {
		return With[C](ar, v)
	}
}

func funcTraversal[T any](v *T, fn Func[T]) traversal {
	return func(ar *Archive) error {
		return fn(ar, v)
	}
}

func encodeTo(sink Sink, o options, t traversal) error {
	return t(NewWriter(sink, o.order))
}

func decodeFrom(src Source, o options, t traversal) error {
	return t(NewReader(src, o.order))
}

func marshal(o options, t traversal) ([]byte, error) {
	sink := NewBytesSink(64)
	if err := encodeTo(sink, o, t); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

func unmarshal(data []byte, o options, t traversal) error {
	src := NewSliceSource(data)
	if err := decodeFrom(src, o, t); err != nil {
		return err
	}
	if o.strict && src.Remaining() > 0 {
		return merr.WrapErrTrailingBytes(src.Remaining())
	}
	return nil
}

// Marshal 把实现了 Serializable 的值编码为字节。
func Marshal(v Serializable, opts ...Option) ([]byte, error) {
	return marshal(newOptions(opts), objectTraversal(v))
}

// MarshalWith 使用策略 C 把 v 编码为字节，例如 MarshalWith[ScalarCodec[uint16]](&x)。
func MarshalWith[C Codec[T], T any](v *T, opts ...Option) ([]byte, error) {
	return marshal(newOptions(opts), codecTraversal[C](v))
}

// MarshalFunc 使用自由函数 fn 把 v 编码为字节。
func MarshalFunc[T any](v *T, fn Func[T], opts ...Option) ([]byte, error) {
	return marshal(newOptions(opts), funcTraversal(v, fn))
}

// Unmarshal 从 data 解码到 v。数据不足时返回 ErrUnderrun；
// 默认允许记录之后存在多余字节，WithStrict 时返回 ErrTrailingBytes。
func Unmarshal(data []byte, v Serializable, opts ...Option) error {
	return unmarshal(data, newOptions(opts), objectTraversal(v))
}

func UnmarshalWith[C Codec[T], T any](data []byte, v *T, opts ...Option) error {
	return unmarshal(data, newOptions(opts), codecTraversal[C](v))
}

func UnmarshalFunc[T any](data []byte, v *T, fn Func[T], opts ...Option) error {
	return unmarshal(data, newOptions(opts), funcTraversal(v, fn))
}

func serializeToFile(path string, o options, t traversal) (err error) {
	sink, err := CreateFileSink(path, o.fileBufferSize)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return encodeTo(sink, o, t)
}

func deserializeFromFile(path string, o options, t traversal) (err error) {
	src, err := OpenFileSource(path, o.fileBufferSize)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := decodeFrom(src, o, t); err != nil {
		return err
	}
	if o.strict {
		n, err := src.Trailing()
		if err != nil {
			return err
		}
		if n > 0 {
			return merr.WrapErrTrailingBytes(int(n))
		}
	}
	return nil
}

// SerializeToFile 把 v 写入 path，文件无法创建或写入失败时返回 ErrIO。
func SerializeToFile(path string, v Serializable, opts ...Option) error {
	return serializeToFile(path, newOptions(opts), objectTraversal(v))
}

func SerializeToFileWith[C Codec[T], T any](path string, v *T, opts ...Option) error {
	return serializeToFile(path, newOptions(opts), codecTraversal[C](v))
}

// DeserializeFromFile 从 path 解码到 v，文件无法打开或读取失败时返回 ErrIO。
func DeserializeFromFile(path string, v Serializable, opts ...Option) error {
	return deserializeFromFile(path, newOptions(opts), objectTraversal(v))
}

func DeserializeFromFileWith[C Codec[T], T any](path string, v *T, opts ...Option) error {
	return deserializeFromFile(path, newOptions(opts), codecTraversal[C](v))
}

// SerializeToWriter 把 v 直接写入 w，不做缓冲。
func SerializeToWriter(w io.Writer, v Serializable, opts ...Option) error {
	return encodeTo(NewWriterSink(w), newOptions(opts), objectTraversal(v))
}

// DeserializeFromReader 从 r 中读取恰好一条记录并解码到 v，不会多读。
func DeserializeFromReader(r io.Reader, v Serializable, opts ...Option) error {
	return decodeFrom(NewReaderSource(r), newOptions(opts), objectTraversal(v))
}

// SerializeUsingCallback 把编码结果逐块交给 push，可用于套接字、管道等任意传输。
func SerializeUsingCallback(v Serializable, push SinkFunc, opts ...Option) error {
	return encodeTo(push, newOptions(opts), objectTraversal(v))
}

// DeserializeUsingCallback 通过 pull 按需拉取字节并解码到 v。
func DeserializeUsingCallback(v Serializable, pull SourceFunc, opts ...Option) error {
	return decodeFrom(pull, newOptions(opts), objectTraversal(v))
}

// Size 返回 v 编码后的字节数。
func Size(v Serializable, opts ...Option) (int, error) {
	sink := &countingSink{}
	if err := encodeTo(sink, newOptions(opts), objectTraversal(v)); err != nil {
		return 0, err
	}
	return sink.n, nil
}

// Clone 先编码 v 再解码出一个新值，得到与 v 不共享任何存储的深拷贝。
func Clone[T any, P interface {
	*T
	Serializable
}](v *T, opts ...Option) (*T, error) {
	return clone(v, newOptions(opts), func(v *T) traversal { return P(v).Serialize })
}

// CloneWith 使用策略 C 完成深拷贝。
func CloneWith[C Codec[T], T any](v *T, opts ...Option) (*T, error) {
	return clone(v, newOptions(opts), codecTraversal[C, T])
}

func clone[T any](v *T, o options, bind func(*T) traversal) (*T, error) {
	pipe := NewPipe()
	defer pipe.Close()

	if err := encodeTo(pipe, o, bind(v)); err != nil {
		return nil, errors.Wrap(err, "clone: encode")
	}
	out := new(T)
	if err := decodeFrom(pipe, o, bind(out)); err != nil {
		return nil, errors.Wrap(err, "clone: decode")
	}
	if n := pipe.Buffered(); n > 0 {
		return nil, merr.WrapErrTrailingBytes(n, "clone")
	}
	return out, nil
}
