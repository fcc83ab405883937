// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"go.uber.org/zap/zapcore"
)

// NewTextCore 创建一个将日志写入指定 WriteSyncer 的 Core。
// errorVerbose 为 false 时，error 字段只输出 Error() 文本，不附带 cockroachdb/errors 的堆栈详情。
func NewTextCore(enc zapcore.Encoder, ws zapcore.WriteSyncer, enab zapcore.LevelEnabler, errorVerbose bool) zapcore.Core {
	return &textIOCore{
		LevelEnabler: enab,
		enc:          enc,
		out:          ws,
		errorVerbose: errorVerbose,
	}
}

// textIOCore 是 zapcore.ioCore 的简化拷贝，额外负责裁剪 error 字段。
type textIOCore struct {
	zapcore.LevelEnabler
	enc          zapcore.Encoder
	out          zapcore.WriteSyncer
	errorVerbose bool
}

func (c *textIOCore) With(fields []zapcore.Field) zapcore.Core {
	clone := c.clone()
	for _, field := range c.trimErrors(fields) {
		field.AddTo(clone.enc)
	}
	return clone
}

func (c *textIOCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *textIOCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, c.trimErrors(fields))
	if err != nil {
		return err
	}
	_, err = c.out.Write(buf.Bytes())
	buf.Free()
	if err != nil {
		return err
	}
	if ent.Level > zapcore.ErrorLevel {
		// 有可能即将导致程序崩溃，此处强制同步输出。
		c.Sync()
	}
	return nil
}

func (c *textIOCore) Sync() error {
	return c.out.Sync()
}

func (c *textIOCore) trimErrors(fields []zapcore.Field) []zapcore.Field {
	if c.errorVerbose {
		return fields
	}
	trimmed := fields
	copied := false
	for i, field := range fields {
		if field.Type != zapcore.ErrorType {
			continue
		}
		err, ok := field.Interface.(error)
		if !ok || err == nil {
			continue
		}
		if !copied {
			trimmed = append([]zapcore.Field(nil), fields...)
			copied = true
		}
		trimmed[i] = zapcore.Field{Key: field.Key, Type: zapcore.StringType, String: err.Error()}
	}
	return trimmed
}

func (c *textIOCore) clone() *textIOCore {
	return &textIOCore{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
		out:          c.out,
		errorVerbose: c.errorVerbose,
	}
}
