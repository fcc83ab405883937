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
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBufferLogger(t *testing.T, cfg *Config) (*zap.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	lg, _, err := InitLoggerWithWriteSyncer(cfg, zapcore.AddSync(buf))
	require.NoError(t, err)
	return lg, buf
}

func TestJSONFormat(t *testing.T) {
	lg, buf := newBufferLogger(t, &Config{
		Level:             "info",
		Format:            FormatJSON,
		DisableCaller:     true,
		DisableStacktrace: true,
	})
	lg.Debug("hidden")
	lg.Info("record written", zap.Int("bytes", 30), FieldModule("sbs"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"record written"`)
	assert.Contains(t, out, `"bytes":30`)
	assert.Contains(t, out, `"module":"sbs"`)
}

func TestErrorVerbose(t *testing.T) {
	err := errors.Wrap(errors.New("boom"), "pull")

	lg, buf := newBufferLogger(t, &Config{
		Level:               "info",
		Format:              FormatJSON,
		DisableCaller:       true,
		DisableStacktrace:   true,
		DisableErrorVerbose: true,
	})
	lg.Warn("traversal failed", zap.Error(err))
	assert.Contains(t, buf.String(), `"error":"pull: boom"`)
	assert.NotContains(t, buf.String(), "errorVerbose")

	lg, buf = newBufferLogger(t, &Config{
		Level:             "info",
		Format:            FormatJSON,
		DisableCaller:     true,
		DisableStacktrace: true,
	})
	lg.Warn("traversal failed", zap.Error(err))
	assert.Contains(t, buf.String(), "errorVerbose")
}

func TestWithFieldsOnTextCore(t *testing.T) {
	lg, buf := newBufferLogger(t, &Config{
		Level:               "debug",
		Format:              FormatText,
		DisableCaller:       true,
		DisableStacktrace:   true,
		DisableErrorVerbose: true,
	})
	lg.With(zap.Error(errors.New("closed"))).Debug("conn")
	assert.Contains(t, buf.String(), "conn")
	assert.Contains(t, buf.String(), "closed")
	assert.NotContains(t, buf.String(), "errorVerbose")
}

func TestInvalidLevel(t *testing.T) {
	_, _, err := InitLoggerWithWriteSyncer(&Config{Level: "verbose"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestFileLogDirectoryRejected(t *testing.T) {
	dir := t.TempDir()
	_, err := initFileLog(&FileLogConfig{RootPath: filepath.Dir(dir), Filename: filepath.Base(dir)})
	assert.Error(t, err)

	lg, err := initFileLog(&FileLogConfig{RootPath: dir, Filename: "sbs.log"})
	require.NoError(t, err)
	assert.Equal(t, defaultLogMaxSize, lg.MaxSize)
}

func TestCtxFields(t *testing.T) {
	ctx := WithModule(context.Background(), "transport")
	ctx = WithConnID(ctx, 7)
	l := Ctx(ctx)
	require.NotNil(t, l)
	assert.NotSame(t, Ctx(context.Background()).Logger, l.Logger)
	assert.Same(t, l, Ctx(ctx))
}

func TestInitTestLogger(t *testing.T) {
	lg, props, err := InitTestLogger(t, &Config{Level: "info"})
	require.NoError(t, err)
	lg.Info("hello from test logger")
	assert.Equal(t, zapcore.InfoLevel, props.Level.Level())
}

func TestRatedLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &MLogger{Logger: zap.New(core)}

	rated := base.With(zap.String("stage", "accept")).WithRateGroup("test.rated.warn", 0, 2)
	assert.True(t, rated.RatedWarn(1, "connection rejected"))
	assert.True(t, rated.RatedWarn(1, "connection rejected"))
	assert.False(t, rated.RatedWarn(1, "connection rejected"))

	// 同名限流组共享额度。
	assert.False(t, base.WithRateGroup("test.rated.warn", 10, 10).RatedInfo(1, "shared"))
	// 额度允许但级别被过滤时不输出。
	assert.True(t, base.WithRateGroup("test.rated.debug", 0, 1).RatedDebug(1, "hidden"))
	// 未绑定限流组时使用全局限流器，默认不限流。
	assert.True(t, base.RatedInfo(100, "unlimited"))

	assert.Equal(t, 3, logs.Len())
	assert.Equal(t, 2, logs.FilterMessage("connection rejected").Len())
}

func TestRateLimiterFromEnv(t *testing.T) {
	t.Setenv("SBS_LOG_RATE_ENABLE", "true")
	t.Setenv("SBS_LOG_RATE_CREDIT_PER_SECOND", "0")
	t.Setenv("SBS_LOG_RATE_MAX_BALANCE", "1")
	configureRateLimiterFromEnv()
	assert.True(t, R().CheckCredit(1))
	assert.False(t, R().CheckCredit(1))

	t.Setenv("SBS_LOG_RATE_ENABLE", "false")
	configureRateLimiterFromEnv()
	assert.IsType(t, nopRateLimiter{}, R())
	assert.True(t, R().CheckCredit(1000))
}

func TestLazyWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &MLogger{Logger: zap.New(core)}

	l := base.With(zap.String("conn", "1")).With(zap.String("stage", "read"))
	l.Debug("filtered")
	l.Info("record received")
	require.NoError(t, l.Sync())

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "1", fields["conn"])
	assert.Equal(t, "read", fields["stage"])
}
