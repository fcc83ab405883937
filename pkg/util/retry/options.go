// Copyright (C) 2019-2020 Zilliz. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License
// is distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express
// or implied. See the License for the specific language governing permissions and limitations under the License.

package retry

import "time"

type config struct {
	attempts     uint
	sleep        time.Duration
	maxSleepTime time.Duration
	isRetryErr   func(err error) bool
}

func newDefaultConfig() *config {
	return &config{
		attempts:     uint(10),
		sleep:        200 * time.Millisecond,
		maxSleepTime: 3 * time.Second,
	}
}

// Option 用于配置重试行为。
type Option func(*config)

// Attempts 设置最大尝试次数，0 表示不限次数（仅 Do 支持）。
func Attempts(attempts uint) Option {
	return func(c *config) {
		c.attempts = attempts
	}
}

// Sleep 设置首次重试前的休眠时间，之后每次翻倍。
func Sleep(sleep time.Duration) Option {
	return func(c *config) {
		c.sleep = sleep
		// 保证 maxSleepTime 不小于 sleep。
		if c.maxSleepTime < c.sleep {
			c.maxSleepTime = 2 * c.sleep
		}
	}
}

// MaxSleepTime 设置单次休眠时间的上限。
func MaxSleepTime(maxSleepTime time.Duration) Option {
	return func(c *config) {
		// 保证 maxSleepTime 不小于 sleep。
		if c.sleep < maxSleepTime {
			c.maxSleepTime = maxSleepTime
		} else {
			c.maxSleepTime = 2 * c.sleep
		}
	}
}

// RetryErr 设置错误过滤函数，返回 false 的错误不会被重试。
func RetryErr(isRetryErr func(err error) bool) Option {
	return func(c *config) {
		c.isRetryErr = isRetryErr
	}
}
