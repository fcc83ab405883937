package sbs

import (
	"math"
	"time"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// UnixNano 可表示的时间范围，超出范围的取值无法往返。
var (
	minUnixNanoTime = time.Unix(0, math.MinInt64).UTC()
	maxUnixNanoTime = time.Unix(0, math.MaxInt64).UTC()
)

// DurationCodec 以 int64 纳秒处理 time.Duration。
type DurationCodec struct{}

func (DurationCodec) Archive(ar *Archive, v *time.Duration) error {
	ns := int64(*v)
	if err := Value(ar, &ns); err != nil {
		return err
	}
	*v = time.Duration(ns)
	return nil
}

// TimeCodec 以自 Unix 纪元起的 int64 纳秒处理 time.Time，解码结果位于 UTC。
// 单调时钟读数与时区不会被保留，可表示的范围约为 1678 年至 2262 年，
// 范围之外的取值（包括零值 time.Time{}）在写出时返回 ErrInvalidValue。
type TimeCodec struct{}

func (TimeCodec) Archive(ar *Archive, v *time.Time) error {
	if ar.IsWriting() {
		if v.Before(minUnixNanoTime) || v.After(maxUnixNanoTime) {
			return merr.WrapErrInvalidValue("time", v.UTC().Format(time.RFC3339Nano), "outside the int64 nanosecond range")
		}
		return encodeScalar(ar, v.UnixNano())
	}

	var ns int64
	if err := decodeScalar(ar, &ns); err != nil {
		return err
	}
	*v = time.Unix(0, ns).UTC()
	return nil
}
