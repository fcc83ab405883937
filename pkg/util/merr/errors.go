// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Service related
	ErrServiceNotReady    = newSbsError("service not ready", 1, true)
	ErrServiceUnavailable = newSbsError("service unavailable", 2, true)
	ErrServiceInternal    = newSbsError("service internal error", 5, false)

	// IO related
	ErrIoFailed      = newSbsError("IO failed", 1001, true)
	ErrIoUnexpectEOF = newSbsError("unexpected EOF", 1002, true)
	// ErrUnderrun indicates a read channel could not supply the requested byte count,
	// the record is truncated or the producer and consumer disagree on its layout.
	ErrUnderrun = newSbsError("underrun", 1003, false)

	// Parameter related
	ErrParameterInvalid  = newSbsError("invalid parameter", 1100, false)
	ErrParameterMissing  = newSbsError("missing parameter", 1101, false)
	ErrParameterTooLarge = newSbsError("parameter too large", 1102, false)

	// Archive related
	ErrModeMismatch  = newSbsError("archive mode mismatch", 1200, false)
	ErrInvalidValue  = newSbsError("invalid encoded value", 1201, false)
	ErrTrailingBytes = newSbsError("trailing bytes after record", 1202, false)
	// ErrValidation is raised by user strategies that reject a value.
	ErrValidation = newSbsError("validation failed", 1203, false)

	// Transport related
	ErrFrameTooLarge    = newSbsError("frame too large", 1300, false)
	ErrConnectionClosed = newSbsError("connection closed", 1301, true)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to sbsError
	errUnexpected = newSbsError("unexpected error", (1<<16)-1, false)

	// General
	ErrOperationNotSupported = newSbsError("unsupported operation", 3000, false)
)

type errorOption func(*sbsError)

func WithDetail(detail string) errorOption {
	return func(err *sbsError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *sbsError) {
		err.errType = etype
	}
}

type sbsError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newSbsError(msg string, code int32, retriable bool, options ...errorOption) sbsError {
	err := sbsError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e sbsError) code() int32 {
	return e.errCode
}

func (e sbsError) Error() string {
	return e.msg
}

func (e sbsError) Detail() string {
	return e.detail
}

func (e sbsError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(sbsError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
