// Copyright 2025 Arion Yau
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

package hub

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the hub's prometheus collectors
type Metrics struct {
	Registry *prometheus.Registry

	DatagramsReceived  *prometheus.CounterVec
	DatagramsDropped   *prometheus.CounterVec
	DatagramsForwarded *prometheus.CounterVec
	SendErrors         *prometheus.CounterVec
	HeartbeatsSent     *prometheus.CounterVec
	ClientHeartbeats   *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry. registry feeds
// the client gauges and may be nil.
func NewMetrics(registry *ClientRegistry) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DatagramsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xaphub",
			Name:      "datagrams_received_total",
			Help:      "Datagrams received, by socket role.",
		}, []string{"role"}),
		DatagramsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xaphub",
			Name:      "datagrams_dropped_total",
			Help:      "Datagrams discarded because the hub was not connected.",
		}, []string{"role"}),
		DatagramsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xaphub",
			Name:      "datagrams_forwarded_total",
			Help:      "Datagrams relayed, by direction.",
		}, []string{"direction"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xaphub",
			Name:      "send_errors_total",
			Help:      "Failed datagram sends, by target.",
		}, []string{"target"}),
		HeartbeatsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xaphub",
			Name:      "heartbeats_sent_total",
			Help:      "Hub heartbeats sent, by class.",
		}, []string{"class"}),
		ClientHeartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xaphub",
			Name:      "client_heartbeats_total",
			Help:      "Local client heartbeats observed, by class.",
		}, []string{"class"}),
	}

	m.Registry.MustRegister(
		m.DatagramsReceived,
		m.DatagramsDropped,
		m.DatagramsForwarded,
		m.SendErrors,
		m.HeartbeatsSent,
		m.ClientHeartbeats,
	)

	if registry != nil {
		m.Registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "xaphub",
				Name:      "clients_active",
				Help:      "Local clients currently flagged active.",
			}, func() float64 { return float64(registry.ActiveCount()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "xaphub",
				Name:      "clients_registered",
				Help:      "Local clients ever registered.",
			}, func() float64 { return float64(registry.Len()) }),
		)
	}

	return m
}
