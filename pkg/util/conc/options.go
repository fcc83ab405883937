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
	ants "github.com/panjf2000/ants/v2"
)

type poolOption struct {
	// name 出现在任务 panic 的日志中。
	name string
	// nonBlocking 为 true 时池满直接拒绝任务，而不是阻塞调用方。
	nonBlocking bool
	// preHandler 在每个任务执行前调用。
	preHandler func()
}

func (opt *poolOption) antsOptions() []ants.Option {
	return []ants.Option{
		ants.WithNonblocking(opt.nonBlocking),
	}
}

// PoolOption 用于配置协程池行为的选项函数。
type PoolOption func(opt *poolOption)

func defaultPoolOption() *poolOption {
	return &poolOption{name: "conc"}
}

// WithName 设置协程池名称。
func WithName(name string) PoolOption {
	return func(opt *poolOption) {
		opt.name = name
	}
}

// WithNonBlocking 设置池满时是否立即拒绝任务。
func WithNonBlocking(v bool) PoolOption {
	return func(opt *poolOption) {
		opt.nonBlocking = v
	}
}

func WithPreHandler(fn func()) PoolOption {
	return func(opt *poolOption) {
		opt.preHandler = fn
	}
}
