package sbs

import (
	"time"
)

// 测试中共用的类型。

type intsRecord struct {
	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64
	I8  int8
	I16 int16
	I32 int32
	I64 int64
}

func (r *intsRecord) Serialize(ar *Archive) error {
	for _, fn := range []func() error{
		func() error { return Value(ar, &r.U8) },
		func() error { return Value(ar, &r.U16) },
		func() error { return Value(ar, &r.U32) },
		func() error { return Value(ar, &r.U64) },
		func() error { return Value(ar, &r.I8) },
		func() error { return Value(ar, &r.I16) },
		func() error { return Value(ar, &r.I32) },
		func() error { return Value(ar, &r.I64) },
	} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

type floatsRecord struct {
	F float32
	D float64
}

func (r *floatsRecord) Serialize(ar *Archive) error {
	if err := Value(ar, &r.F); err != nil {
		return err
	}
	return Value(ar, &r.D)
}

type color uint16

const (
	colorFirst color = iota
	colorSecond
	colorThird
	colorBig color = 60000
)

type colorsRecord struct {
	A, B, C, D color
}

func (r *colorsRecord) Serialize(ar *Archive) error {
	for _, c := range []*color{&r.A, &r.B, &r.C, &r.D} {
		if err := Value(ar, c); err != nil {
			return err
		}
	}
	return nil
}

// pointRecord 没有 Serialize 方法，由自由函数 archivePoint 处理。
type pointRecord struct {
	I uint8
	F float32
}

func archivePoint(ar *Archive, p *pointRecord) error {
	if err := Value(ar, &p.I); err != nil {
		return err
	}
	return Value(ar, &p.F)
}

type innerRecord struct {
	I1 uint64
	I2 int32
}

func (r *innerRecord) Serialize(ar *Archive) error {
	if err := Value(ar, &r.I1); err != nil {
		return err
	}
	return Value(ar, &r.I2)
}

type outerRecord struct {
	I1    uint16
	D     float64
	Inner innerRecord
	I2    int64
	F     float32
}

func (r *outerRecord) Serialize(ar *Archive) error {
	if err := Value(ar, &r.I1); err != nil {
		return err
	}
	if err := Value(ar, &r.D); err != nil {
		return err
	}
	if err := Object(ar, &r.Inner); err != nil {
		return err
	}
	if err := Value(ar, &r.I2); err != nil {
		return err
	}
	return Value(ar, &r.F)
}

// kitchenSink 覆盖所有复合策略。
type kitchenSink struct {
	Name     string
	Raw      []byte
	Flag     bool
	Numbers  []int32
	Nested   [][]string
	Scores   map[string]float64
	Tags     map[uint32][]string
	Rating   Optional[float32]
	Missing  Optional[string]
	Owner    *innerRecord
	Nobody   *innerRecord
	State    Variant3[int32, string, bool]
	Entry    Pair[string, uint8]
	Triple   Triple[int8, string, bool]
	Fixed    [3]int16
	Children []outerRecord
	Path     string
	Wait     time.Duration
	At       time.Time
	Phase    complex128
}

func (k *kitchenSink) Serialize(ar *Archive) error {
	steps := []func() error{
		func() error { return With[StringCodec](ar, &k.Name) },
		func() error { return With[BytesCodec](ar, &k.Raw) },
		func() error { return With[BoolCodec](ar, &k.Flag) },
		func() error { return With[SliceCodec[int32, ScalarCodec[int32]]](ar, &k.Numbers) },
		func() error {
			return With[SliceCodec[[]string, SliceCodec[string, StringCodec]]](ar, &k.Nested)
		},
		func() error {
			return With[MapCodec[string, float64, StringCodec, ScalarCodec[float64]]](ar, &k.Scores)
		},
		func() error {
			return With[MapCodec[uint32, []string, ScalarCodec[uint32], SliceCodec[string, StringCodec]]](ar, &k.Tags)
		},
		func() error { return With[OptionalCodec[float32, ScalarCodec[float32]]](ar, &k.Rating) },
		func() error { return With[OptionalCodec[string, StringCodec]](ar, &k.Missing) },
		func() error { return With[PointerCodec[innerRecord, ObjectCodec[innerRecord, *innerRecord]]](ar, &k.Owner) },
		func() error { return With[PointerCodec[innerRecord, ObjectCodec[innerRecord, *innerRecord]]](ar, &k.Nobody) },
		func() error {
			return With[Variant3Codec[int32, string, bool, ScalarCodec[int32], StringCodec, BoolCodec]](ar, &k.State)
		},
		func() error { return With[PairCodec[string, uint8, StringCodec, ScalarCodec[uint8]]](ar, &k.Entry) },
		func() error {
			return With[TripleCodec[int8, string, bool, ScalarCodec[int8], StringCodec, BoolCodec]](ar, &k.Triple)
		},
		func() error { return Array[ScalarCodec[int16]](ar, k.Fixed[:]) },
		func() error { return With[SliceCodec[outerRecord, ObjectCodec[outerRecord, *outerRecord]]](ar, &k.Children) },
		func() error { return With[PathCodec](ar, &k.Path) },
		func() error { return With[DurationCodec](ar, &k.Wait) },
		func() error { return With[TimeCodec](ar, &k.At) },
		func() error { return With[Complex128Codec](ar, &k.Phase) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
