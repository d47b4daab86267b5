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
	"net"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"xaphub/internal/logger"
	"xaphub/internal/network"
)

// SocketProvider hands out the sockets the router sends through
type SocketProvider interface {
	Client() net.PacketConn
	Transmit() net.PacketConn
}

// Router relays datagrams between local clients and the network
type Router struct {
	registry  *ClientRegistry
	peers     *PeerTable
	codec     *HeartbeatCodec
	sender    *Sender
	sockets   SocketProvider
	metrics   *Metrics
	clock     clock.Clock
	connected func() bool
	logger    zerolog.Logger

	// defaultIP is the only sender address whose heartbeats register clients
	defaultIP net.IP
	loopback  net.IP
	broadcast *net.UDPAddr
}

// RouterConfig holds the collaborators of a Router
type RouterConfig struct {
	Registry  *ClientRegistry
	Peers     *PeerTable
	Codec     *HeartbeatCodec
	Sender    *Sender
	Sockets   SocketProvider
	Metrics   *Metrics
	Clock     clock.Clock
	Connected func() bool
	DefaultIP net.IP
	Loopback  net.IP
	Broadcast *net.UDPAddr
}

// NewRouter creates a router from its collaborators
func NewRouter(cfg RouterConfig) *Router {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	loopback := cfg.Loopback
	if loopback == nil {
		loopback = net.IPv4(127, 0, 0, 1)
	}
	connected := cfg.Connected
	if connected == nil {
		connected = func() bool { return true }
	}
	return &Router{
		registry:  cfg.Registry,
		peers:     cfg.Peers,
		codec:     cfg.Codec,
		sender:    cfg.Sender,
		sockets:   cfg.Sockets,
		metrics:   cfg.Metrics,
		clock:     clk,
		connected: connected,
		logger:    logger.GetLogger("hub.router"),
		defaultIP: cfg.DefaultIP,
		loopback:  loopback,
		broadcast: cfg.Broadcast,
	}
}

// Route dispatches a datagram by the socket it arrived on
func (r *Router) Route(d network.Datagram) {
	if r.metrics != nil {
		r.metrics.DatagramsReceived.WithLabelValues(string(d.Role)).Inc()
	}

	if !r.connected() {
		if r.metrics != nil {
			r.metrics.DatagramsDropped.WithLabelValues(string(d.Role)).Inc()
		}
		return
	}

	switch d.Role {
	case network.RoleClient:
		r.HandleClientDatagram(d.Data, d.From)
	default:
		r.HandleNetworkDatagram(d.Data, d.From)
	}
}

// HandleClientDatagram relays a local client's datagram onto the network unchanged
func (r *Router) HandleClientDatagram(data []byte, from *net.UDPAddr) {
	r.logger.Trace().
		Str("from", addrString(from)).
		Str("to", r.broadcast.String()).
		Int("bytes", len(data)).
		Msg("Forward client message to network")

	r.sender.SendBestEffort(r.sockets.Transmit(), data, r.broadcast, TARGET_NETWORK)
	if r.metrics != nil {
		r.metrics.DatagramsForwarded.WithLabelValues("to_network").Inc()
	}
}

// HandleNetworkDatagram registers heartbeats looped back from local clients,
// then fans the datagram out to every live client
func (r *Router) HandleNetworkDatagram(data []byte, from *net.UDPAddr) {
	r.logger.Trace().
		Str("from", addrString(from)).
		Int("bytes", len(data)).
		Msg("Received network message")

	r.inspect(data, from)
	r.forwardToClients(data)
}

// inspect looks at the first block for a heartbeat
func (r *Router) inspect(data []byte, from *net.UDPAddr) {
	block, ok := r.codec.DecodeFirstBlock(data)
	if !ok {
		return
	}
	hb, ok := r.codec.decode(block)
	if !ok {
		return
	}

	if from != nil && from.IP.Equal(r.defaultIP) {
		if hb.Port == 0 {
			return
		}
		if r.metrics != nil {
			r.metrics.ClientHeartbeats.WithLabelValues(string(hb.Class)).Inc()
		}
		r.registry.ObserveHeartbeat(*hb)
		return
	}

	if r.peers != nil && from != nil {
		r.peers.Record(hb, from.IP.String(), r.clock.Now())
	}
}

// forwardToClients sends data to each forwardable client; a failed send to
// one client does not affect the others
func (r *Router) forwardToClients(data []byte) {
	conn := r.sockets.Client()
	for _, entry := range r.registry.Forwardable(r.clock.Now()) {
		addr := &net.UDPAddr{IP: r.loopback, Port: entry.Port}
		r.sender.SendBestEffort(conn, data, addr, TARGET_CLIENT)
		if r.metrics != nil {
			r.metrics.DatagramsForwarded.WithLabelValues("to_client").Inc()
		}
	}
}

func addrString(addr *net.UDPAddr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
