// Copyright 2024 Litewarden Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package state

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "litewarden"
	subsystem = "state"
)

// metricsCollector exposes Provider's state as Prometheus metrics.
type metricsCollector struct {
	p       *Provider
	addUUID bool
}

// MetricsCollector returns Prometheus metrics collector for that provider.
//
// If addUUID is true, then the process UUID is added to the Prometheus metric.
func (p *Provider) MetricsCollector(addUUID bool) prometheus.Collector {
	return &metricsCollector{
		p:       p,
		addUUID: addUUID,
	}
}

// Describe implements prometheus.Collector.
func (c *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements prometheus.Collector.
func (c *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.p.Get()

	labels := prometheus.Labels{
		"engine_version": s.EngineVersion,
	}
	if c.addUUID {
		labels["uuid"] = s.UUID
	}

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "info"),
			"Process state information.",
			nil, labels,
		),
		prometheus.GaugeValue,
		1,
	)
}

// check interfaces
var (
	_ prometheus.Collector = (*metricsCollector)(nil)
)
