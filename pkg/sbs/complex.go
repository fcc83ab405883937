package sbs

// Complex64Codec 先写实部再写虚部，各为 float32。
type Complex64Codec struct{}

func (Complex64Codec) Archive(ar *Archive, v *complex64) error {
	re, im := real(*v), imag(*v)
	if err := Value(ar, &re); err != nil {
		return err
	}
	if err := Value(ar, &im); err != nil {
		return err
	}
	*v = complex(re, im)
	return nil
}

// Complex128Codec 先写实部再写虚部，各为 float64。
type Complex128Codec struct{}

func (Complex128Codec) Archive(ar *Archive, v *complex128) error {
	re, im := real(*v), imag(*v)
	if err := Value(ar, &re); err != nil {
		return err
	}
	if err := Value(ar, &im); err != nil {
		return err
	}
	*v = complex(re, im)
	return nil
}
