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
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/sbs-go/pkg/util/merr"
)

func TestPool(t *testing.T) {
	pool := NewDefaultPool[any]()
	defer pool.Release()

	taskNum := pool.Cap() * 2
	futures := make([]*Future[any], 0, taskNum)
	for i := 0; i < taskNum; i++ {
		res := i
		future := pool.Submit(func() (any, error) {
			return res, nil
		})
		futures = append(futures, future)
	}

	assert.NoError(t, AwaitAll(futures...))
	for i, future := range futures {
		res, err := future.Await()
		assert.NoError(t, err)
		assert.Equal(t, err, future.Err())
		assert.True(t, future.OK())
		assert.True(t, future.Done())
		assert.Equal(t, res, future.Value())
		assert.Equal(t, i, res.(int))

		_, ok := <-future.Inner()
		assert.False(t, ok)
	}
}

func TestPoolError(t *testing.T) {
	pool := NewPool[int](2)
	defer pool.Release()

	errBoom := errors.New("boom")
	ok := pool.Submit(func() (int, error) { return 1, nil })
	bad := pool.Submit(func() (int, error) { return 0, errBoom })

	err := AwaitAll(ok, bad)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, ok.Value())
	assert.False(t, bad.OK())
}

func TestPoolPreHandler(t *testing.T) {
	var calls atomic.Int32
	pool := NewPool[struct{}](1, WithPreHandler(func() { calls.Add(1) }))
	defer pool.Release()

	for i := 0; i < 3; i++ {
		assert.True(t, pool.Submit(func() (struct{}, error) { return struct{}{}, nil }).OK())
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestPoolPanic(t *testing.T) {
	pool := NewPool[int](1, WithName("panicky"))
	defer pool.Release()

	bad := pool.Submit(func() (int, error) { panic("boom") })
	assert.ErrorIs(t, bad.Err(), merr.ErrServiceInternal)

	// panic 之后池仍然可用。
	v, err := pool.Submit(func() (int, error) { return 7, nil }).Await()
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestPoolRejectWhenFull(t *testing.T) {
	pool := NewPool[struct{}](1, WithNonBlocking(true))
	defer pool.Release()

	release := make(chan struct{})
	busy := pool.Submit(func() (struct{}, error) {
		<-release
		return struct{}{}, nil
	})
	rejected := pool.Submit(func() (struct{}, error) { return struct{}{}, nil })
	assert.True(t, rejected.Done())
	assert.ErrorIs(t, rejected.Err(), merr.ErrServiceUnavailable)

	close(release)
	assert.NoError(t, busy.Err())
}

func TestPoolResize(t *testing.T) {
	pool := NewPool[any](8)
	defer pool.Release()

	assert.Equal(t, 8, pool.Cap())
	assert.NoError(t, pool.Resize(16))
	assert.Equal(t, 16, pool.Cap())
	assert.ErrorIs(t, pool.Resize(0), merr.ErrParameterInvalid)
	assert.ErrorIs(t, pool.Resize(-1), merr.ErrParameterInvalid)
}

func TestGo(t *testing.T) {
	future := Go(func() (string, error) {
		return "done", nil
	})
	v, err := future.Await()
	assert.NoError(t, err)
	assert.Equal(t, "done", v)
}
