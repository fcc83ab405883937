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

package log

import (
	"sync/atomic"

	"github.com/uber/jaeger-client-go/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MLogger 在 zap.Logger 之上增加按组限流的日志输出。
// 传输层在连接被拒绝、拨号退避这类可能被刷屏的路径上使用 Rated* 方法。
type MLogger struct {
	*zap.Logger
	rl atomic.Pointer[utils.ReconfigurableRateLimiter]
}

// With 返回携带额外字段的新 MLogger，限流组随之继承。
func (l *MLogger) With(fields ...zap.Field) *MLogger {
	nl := &MLogger{
		Logger: l.Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return NewLazyWith(core, fields)
		})),
	}
	nl.rl.Store(l.rl.Load())
	return nl
}

// WithRateGroup 返回绑定到命名限流组的新 MLogger。
// 同名的组在进程内共享额度，首次创建时的参数生效。
func (l *MLogger) WithRateGroup(group string, creditPerSecond, maxBalance float64) *MLogger {
	nl := &MLogger{Logger: l.Logger}
	nl.rl.Store(rateGroup(group, creditPerSecond, maxBalance))
	return nl
}

func rateGroup(group string, creditPerSecond, maxBalance float64) *utils.ReconfigurableRateLimiter {
	if rl, ok := _namedRateLimiters.Load(group); ok {
		return rl.(*utils.ReconfigurableRateLimiter)
	}
	rl, _ := _namedRateLimiters.LoadOrStore(group, utils.NewRateLimiter(creditPerSecond, maxBalance))
	return rl.(*utils.ReconfigurableRateLimiter)
}

func (l *MLogger) limiter() RateLimiter {
	if rl := l.rl.Load(); rl != nil {
		return rl
	}
	return R()
}

func (l *MLogger) rated(level zapcore.Level, cost float64, msg string, fields []zap.Field) bool {
	if !l.limiter().CheckCredit(cost) {
		return false
	}
	if ce := l.WithOptions(zap.AddCallerSkip(2)).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
	return true
}

// RatedDebug 在额度允许时输出 Debug 日志，被限流时返回 false。
func (l *MLogger) RatedDebug(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.DebugLevel, cost, msg, fields)
}

// RatedInfo 在额度允许时输出 Info 日志，被限流时返回 false。
func (l *MLogger) RatedInfo(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.InfoLevel, cost, msg, fields)
}

// RatedWarn 在额度允许时输出 Warn 日志，被限流时返回 false。
func (l *MLogger) RatedWarn(cost float64, msg string, fields ...zap.Field) bool {
	return l.rated(zapcore.WarnLevel, cost, msg, fields)
}
