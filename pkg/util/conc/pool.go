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

package conc

import (
	"fmt"
	"runtime"

	ants "github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/lk2023060901/sbs-go/pkg/log"
	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

// Pool 是对 ants.Pool 的泛型封装，提交的任务以 Future 的形式返回结果。
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 创建一个容量为 cap 的协程池。
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// NewDefaultPool 创建一个容量为 GOMAXPROCS 的协程池。
func NewDefaultPool[T any](opts ...PoolOption) *Pool[T] {
	return NewPool[T](runtime.GOMAXPROCS(0), opts...)
}

// Submit 向协程池提交任务。
// 池已满且配置为非阻塞时，返回的 Future 携带 ErrServiceUnavailable；
// 任务 panic 时被恢复，Future 携带 ErrServiceInternal。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer close(future.ch)
		defer func() {
			if r := recover(); r != nil {
				log.Error("conc pool task panicked", zap.String("pool", pool.opt.name), zap.Any("panic", r))
				future.err = merr.WrapErrServiceInternal(fmt.Sprint(r), pool.opt.name+" task panicked")
			}
		}()
		if pool.opt.preHandler != nil {
			pool.opt.preHandler()
		}
		future.value, future.err = method()
	})
	if err != nil {
		future.err = merr.WrapErrServiceUnavailable(err.Error(), pool.opt.name+" pool submit")
		close(future.ch)
	}

	return future
}

// Cap 返回协程池容量。
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Release 释放协程池，已提交的任务仍会执行完毕。
func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

// Resize 调整协程池容量，size 必须为正数。
func (pool *Pool[T]) Resize(size int) error {
	if size <= 0 {
		return merr.WrapErrParameterInvalidMsg("pool size must be positive, got %d", size)
	}
	pool.inner.Tune(size)
	return nil
}
