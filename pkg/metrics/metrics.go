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
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// sbsNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	sbsNamespace = "sbs"

	// 以下为当前使用的通用标签名。
	operationLabelName = "operation"
	statusLabelName    = "status"
	directionLabelName = "direction"
	stageLabelName     = "stage"

	EncodeLabel = "encode"
	DecodeLabel = "decode"

	SuccessLabel = "ok"
	FailLabel    = "fail"
)

var (
	// sizeBuckets 为记录大小的桶划分，单位为字节。
	// 实际桶分布为：
	// [16 64 256 1024 4096 16384 65536 262144 1.048576e+06 4.194304e+06 1.6777216e+07]
	sizeBuckets = prometheus.ExponentialBuckets(16, 4, 11)

	// RecordsTotal 统计编解码的记录数量。
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: sbsNamespace,
			Name:      "records_total",
			Help:      "number of records encoded or decoded",
		}, []string{operationLabelName, statusLabelName})

	metricRegisterer prometheus.Registerer
)

// StatusLabel 根据 err 返回对应的状态标签。
func StatusLabel(err error) string {
	if err != nil {
		return FailLabel
	}
	return SuccessLabel
}

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标。
// 通常应在 init 函数中调用。
func Register(r prometheus.Registerer) {
	r.MustRegister(RecordsTotal)
	RegisterTransportMetrics(r)
	metricRegisterer = r
}
