// Package netaddr finds the address of the interface that carries the
// default route, and the IPv4 broadcast address of its subnet.
package netaddr

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoNetwork is returned when no usable IPv4 interface can be found
var ErrNoNetwork = errors.New("no usable IPv4 network interface")

// probeTarget is never contacted; dialing UDP only asks the kernel which
// local address would route there.
const probeTarget = "192.0.2.1:9"

// Resolver looks up interface addresses. The zero value uses the host.
type Resolver struct {
	// Interfaces lists candidate interfaces; defaults to net.Interfaces
	Interfaces func() ([]Interface, error)
	// OutboundIP reports the local address of the default route; defaults to a UDP dial
	OutboundIP func() (net.IP, error)
}

// Interface is the subset of an interface needed for address selection
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []*net.IPNet
}

// DefaultIP returns the IPv4 address of the default interface
func DefaultIP() (net.IP, error) {
	return Resolver{}.DefaultIP()
}

// DefaultBroadcastIP returns the broadcast address of the default interface
func DefaultBroadcastIP() (net.IP, error) {
	return Resolver{}.DefaultBroadcastIP()
}

// DefaultIP returns the IPv4 address of the default interface
func (r Resolver) DefaultIP() (net.IP, error) {
	ipnet, err := r.defaultNet()
	if err != nil {
		return nil, err
	}
	return ipnet.IP, nil
}

// DefaultBroadcastIP returns the broadcast address of the default interface
func (r Resolver) DefaultBroadcastIP() (net.IP, error) {
	ipnet, err := r.defaultNet()
	if err != nil {
		return nil, err
	}
	return Broadcast(ipnet), nil
}

// Broadcast computes the directed broadcast address of an IPv4 network
func Broadcast(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	if ip == nil {
		return nil
	}
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	out := make(net.IP, net.IPv4len)
	for i := range ip {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}

// defaultNet picks the interface network holding the outbound address,
// falling back to the first up, non-loopback IPv4 network.
func (r Resolver) defaultNet() (*net.IPNet, error) {
	ifaces, err := r.interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	var candidates []*net.IPNet
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		for _, n := range iface.Addrs {
			if n.IP.To4() != nil && !n.IP.IsLoopback() {
				candidates = append(candidates, n)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoNetwork
	}

	if outbound, err := r.outboundIP(); err == nil && outbound != nil {
		for _, n := range candidates {
			if n.IP.Equal(outbound) {
				return &net.IPNet{IP: n.IP.To4(), Mask: n.Mask}, nil
			}
		}
	}

	n := candidates[0]
	return &net.IPNet{IP: n.IP.To4(), Mask: n.Mask}, nil
}

func (r Resolver) interfaces() ([]Interface, error) {
	if r.Interfaces != nil {
		return r.Interfaces()
	}
	return hostInterfaces()
}

func (r Resolver) outboundIP() (net.IP, error) {
	if r.OutboundIP != nil {
		return r.OutboundIP()
	}
	return hostOutboundIP()
}

func hostInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		entry := Interface{Name: iface.Name, Flags: iface.Flags}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				entry.Addrs = append(entry.Addrs, ipnet)
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func hostOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp4", probeTarget)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return localAddr.IP, nil
}
