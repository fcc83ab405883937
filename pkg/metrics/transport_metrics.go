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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	transportMetricSubsystem = "transport"

	InboundLabel  = "in"
	OutboundLabel = "out"

	DialStage   = "dial"
	AcceptStage = "accept"
	ReadStage   = "read"
	WriteStage  = "write"
	HandleStage = "handle"
)

var (
	TransportMetricsRegisterOnce sync.Once

	TransportFramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: sbsNamespace,
		Subsystem: transportMetricSubsystem,
		Name:      "frames_total",
		Help:      "收发的记录帧数量",
	}, []string{directionLabelName})

	TransportFrameBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: sbsNamespace,
		Subsystem: transportMetricSubsystem,
		Name:      "frame_bytes",
		Help:      "单个记录帧负载的字节数",
		Buckets:   sizeBuckets,
	}, []string{directionLabelName})

	TransportErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: sbsNamespace,
		Subsystem: transportMetricSubsystem,
		Name:      "errors_total",
		Help:      "传输层各阶段出现的错误次数",
	}, []string{stageLabelName})

	TransportConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: sbsNamespace,
		Subsystem: transportMetricSubsystem,
		Name:      "connections",
		Help:      "服务端当前持有的连接数",
	})
)

// RegisterTransportMetrics 将传输层相关的指标注册到 Prometheus Registerer 中。
func RegisterTransportMetrics(r prometheus.Registerer) {
	TransportMetricsRegisterOnce.Do(func() {
		r.MustRegister(TransportFramesTotal)
		r.MustRegister(TransportFrameBytes)
		r.MustRegister(TransportErrorsTotal)
		r.MustRegister(TransportConnections)
	})
}

// ObserveFrame 记录一次方向为 direction、负载为 size 字节的帧。
func ObserveFrame(direction string, size int) {
	TransportFramesTotal.WithLabelValues(direction).Inc()
	TransportFrameBytes.WithLabelValues(direction).Observe(float64(size))
}
