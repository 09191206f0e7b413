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

package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "litewarden"
	subsystem = "pool"
)

// Stats is a point-in-time snapshot of pool usage.
type Stats struct {
	Conns   int // total physical connections
	Free    int // connections not currently acquired
	Waiting int // callers suspended in Acquire
}

// Stats returns a snapshot of pool usage.
func (p *Pool) Stats() Stats {
	p.rw.Lock()
	defer p.rw.Unlock()

	return Stats{
		Conns:   len(p.conns),
		Free:    len(p.free),
		Waiting: len(p.waiters),
	}
}

// Describe implements prometheus.Collector.
func (p *Pool) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(p, ch)
}

// Collect implements prometheus.Collector.
func (p *Pool) Collect(ch chan<- prometheus.Metric) {
	stats := p.Stats()

	labels := prometheus.Labels{
		"path": p.path,
	}

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "connections"),
			"The number of physical connections in the pool.",
			nil, labels,
		),
		prometheus.GaugeValue,
		float64(stats.Conns),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "free_connections"),
			"The number of connections not currently acquired.",
			nil, labels,
		),
		prometheus.GaugeValue,
		float64(stats.Free),
	)

	ch <- prometheus.MustNewConstMetric(
		prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "waiters"),
			"The number of callers suspended in Acquire.",
			nil, labels,
		),
		prometheus.GaugeValue,
		float64(stats.Waiting),
	)

	p.db.Collect(ch)
}

// check interfaces
var (
	_ prometheus.Collector = (*Pool)(nil)
)
