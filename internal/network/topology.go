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

package network

import (
	"fmt"
	"net"
	"runtime"
	"strings"
)

// Topology selects how the hub's sockets are arranged on the host
type Topology int

const (
	// TopologyAuto resolves to a concrete topology from the host OS
	TopologyAuto Topology = iota
	// TopologySingle uses one socket bound to the default unicast address
	// for both network receive and transmit
	TopologySingle
	// TopologyMulti uses a dedicated transmit socket plus receive sockets
	// bound to the subnet and limited broadcast addresses
	TopologyMulti
)

func (t Topology) String() string {
	switch t {
	case TopologySingle:
		return "single"
	case TopologyMulti:
		return "multi"
	default:
		return "auto"
	}
}

// ParseTopology converts a configuration string into a Topology
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TopologyAuto, nil
	case "single":
		return TopologySingle, nil
	case "multi":
		return TopologyMulti, nil
	default:
		return TopologyAuto, fmt.Errorf("unknown topology %q (expected auto, single or multi)", s)
	}
}

// ForOS returns the topology that works on the given GOOS.
// Windows binds receive and transmit to an interface; everything else needs
// separate sockets to catch broadcast traffic.
func ForOS(goos string) Topology {
	if goos == "windows" {
		return TopologySingle
	}
	return TopologyMulti
}

// Resolve replaces TopologyAuto with the topology for the running OS
func (t Topology) Resolve() Topology {
	if t == TopologyAuto {
		return ForOS(runtime.GOOS)
	}
	return t
}

// Role names a socket within the topology
type Role string

const (
	RoleClient Role = "client"
	RoleTx     Role = "tx"
	RoleRx     Role = "rx"
	RoleRx2    Role = "rx2"
)

// SocketSpec describes one socket to bind
type SocketSpec struct {
	Role Role
	IP   net.IP
	Port int
	// Broadcast enables SO_BROADCAST on the socket
	Broadcast bool
	// Transmit marks a receive socket that also carries network sends
	Transmit bool
}

// Addr returns the bind address
func (s SocketSpec) Addr() *net.UDPAddr {
	return &net.UDPAddr{IP: s.IP, Port: s.Port}
}

// Primary reports whether this is the socket whose bind marks the hub connected
func (s SocketSpec) Primary() bool {
	return s.Role == RoleRx
}

// Addresses holds the addresses a plan is built from
type Addresses struct {
	Loopback  net.IP
	Default   net.IP
	Broadcast net.IP
}

// LimitedBroadcast is the all-ones broadcast address
var LimitedBroadcast = net.IPv4bcast

// Plan lists the sockets to bind for a topology, in bind order
func Plan(t Topology, addrs Addresses, port int) []SocketSpec {
	loopback := addrs.Loopback
	if loopback == nil {
		loopback = net.IPv4(127, 0, 0, 1)
	}

	client := SocketSpec{Role: RoleClient, IP: loopback, Port: port}

	switch t.Resolve() {
	case TopologySingle:
		return []SocketSpec{
			client,
			{Role: RoleRx, IP: addrs.Default, Port: port, Broadcast: true, Transmit: true},
		}
	default:
		return []SocketSpec{
			client,
			{Role: RoleTx, IP: addrs.Default, Port: 0, Broadcast: true},
			{Role: RoleRx, IP: addrs.Broadcast, Port: port},
			{Role: RoleRx2, IP: LimitedBroadcast, Port: port},
		}
	}
}
