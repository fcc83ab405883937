package sbs

import (
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Alternative 处理联合体的一个分支。
// 读模式下调用方应保证该分支已处于零值状态。
type Alternative func(ar *Archive) error

// Union 先写 8 字节分支下标，再通过分派表处理当前分支。
// 读模式下先读下标并写回 index，再处理对应分支；越界的下标返回 ErrInvalidValue。
func Union(ar *Archive, index *uint64, alts ...Alternative) error {
	if ar.IsWriting() {
		if *index >= uint64(len(alts)) {
			return merr.WrapErrInvalidValue("variant index", *index)
		}
		if err := encodeScalar(ar, *index); err != nil {
			return err
		}
		return alts[*index](ar)
	}

	var idx uint64
	if err := decodeScalar(ar, &idx); err != nil {
		return err
	}
	if idx >= uint64(len(alts)) {
		return merr.WrapErrInvalidValue("variant index", idx)
	}
	*index = idx
	return alts[idx](ar)
}

// Variant2 是两个分支的带标签联合体，零值为第一个分支的零值。
type Variant2[A, B any] struct {
	index uint64
	a     A
	b     B
}

func (v Variant2[A, B]) Index() int {
	return int(v.index)
}

func (v Variant2[A, B]) First() (A, bool) {
	return v.a, v.index == 0
}

func (v Variant2[A, B]) Second() (B, bool) {
	return v.b, v.index == 1
}

func (v *Variant2[A, B]) SetFirst(a A) {
	*v = Variant2[A, B]{index: 0, a: a}
}

func (v *Variant2[A, B]) SetSecond(b B) {
	*v = Variant2[A, B]{index: 1, b: b}
}

type Variant2Codec[A, B any, CA Codec[A], CB Codec[B]] struct{}

func (Variant2Codec[A, B, CA, CB]) Archive(ar *Archive, v *Variant2[A, B]) error {
	var (
		ca CA
		cb CB
	)
	if ar.IsReading() {
		*v = Variant2[A, B]{}
	}
	return Union(ar, &v.index,
		func(ar *Archive) error { return ca.Archive(ar, &v.a) },
		func(ar *Archive) error { return cb.Archive(ar, &v.b) },
	)
}

// Variant3 是三个分支的带标签联合体，零值为第一个分支的零值。
type Variant3[A, B, C any] struct {
	index uint64
	a     A
	b     B
	c     C
}

func (v Variant3[A, B, C]) Index() int {
	return int(v.index)
}

func (v Variant3[A, B, C]) First() (A, bool) {
	return v.a, v.index == 0
}

func (v Variant3[A, B, C]) Second() (B, bool) {
	return v.b, v.index == 1
}

func (v Variant3[A, B, C]) Third() (C, bool) {
	return v.c, v.index == 2
}

func (v *Variant3[A, B, C]) SetFirst(a A) {
	*v = Variant3[A, B, C]{index: 0, a: a}
}

func (v *Variant3[A, B, C]) SetSecond(b B) {
	*v = Variant3[A, B, C]{index: 1, b: b}
}

func (v *Variant3[A, B, C]) SetThird(c C) {
	*v = Variant3[A, B, C]{index: 2, c: c}
}

type Variant3Codec[A, B, C any, CA Codec[A], CB Codec[B], CC Codec[C]] struct{}

func (Variant3Codec[A, B, C, CA, CB, CC]) Archive(ar *Archive, v *Variant3[A, B, C]) error {
	var (
		ca CA
		cb CB
		cc CC
	)
	if ar.IsReading() {
		*v = Variant3[A, B, C]{}
	}
	return Union(ar, &v.index,
		func(ar *Archive) error { return ca.Archive(ar, &v.a) },
		func(ar *Archive) error { return cb.Archive(ar, &v.b) },
		func(ar *Archive) error { return cc.Archive(ar, &v.c) },
	)
}
