// Copyright 2026 The devlogs Authors
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

package devlogs

import "github.com/prometheus/client_golang/prometheus"

// Drop reasons recorded on the dropped-documents counter.
const (
	dropReasonBreakerOpen = "breaker_open"
	dropReasonQueueFull   = "queue_full"
	dropReasonClosed      = "closed"
)

// Metrics counts dispatch outcomes. All methods are nil-safe so the
// dispatcher can run without metrics attached.
type Metrics struct {
	dispatched prometheus.Counter
	indexed    prometheus.Counter
	failed     prometheus.Counter
	dropped    *prometheus.CounterVec
}

// NewMetrics returns an unregistered metrics set. Call [Metrics.Register] to
// expose it on a prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlogs",
			Subsystem: "dispatch",
			Name:      "documents_total",
			Help:      "Documents accepted for asynchronous delivery.",
		}),
		indexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlogs",
			Subsystem: "dispatch",
			Name:      "indexed_total",
			Help:      "Documents successfully indexed.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlogs",
			Subsystem: "dispatch",
			Name:      "failures_total",
			Help:      "Delivery attempts that failed.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlogs",
			Subsystem: "dispatch",
			Name:      "dropped_total",
			Help:      "Documents dropped before delivery.",
		}, []string{"reason"}),
	}
}

// Register registers all collectors on r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	if m == nil || r == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{m.dispatched, m.indexed, m.failed, m.dropped} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) incDispatched() {
	if m == nil {
		return
	}
	m.dispatched.Inc()
}

func (m *Metrics) incIndexed() {
	if m == nil {
		return
	}
	m.indexed.Inc()
}

func (m *Metrics) incFailed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

func (m *Metrics) incDropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}
