package sbs

// Pair 按 First、Second 的顺序处理，不带前缀。
type Pair[A, B any] struct {
	First  A
	Second B
}

type PairCodec[A, B any, CA Codec[A], CB Codec[B]] struct{}

func (PairCodec[A, B, CA, CB]) Archive(ar *Archive, v *Pair[A, B]) error {
	var (
		ca CA
		cb CB
	)
	if err := ca.Archive(ar, &v.First); err != nil {
		return err
	}
	return cb.Archive(ar, &v.Second)
}

// Triple 按 First、Second、Third 的顺序处理，不带前缀。
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

type TripleCodec[A, B, C any, CA Codec[A], CB Codec[B], CC Codec[C]] struct{}

func (TripleCodec[A, B, C, CA, CB, CC]) Archive(ar *Archive, v *Triple[A, B, C]) error {
	var (
		ca CA
		cb CB
		cc CC
	)
	if err := ca.Archive(ar, &v.First); err != nil {
		return err
	}
	if err := cb.Archive(ar, &v.Second); err != nil {
		return err
	}
	return cc.Archive(ar, &v.Third)
}
