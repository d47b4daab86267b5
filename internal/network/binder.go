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
	"context"
	"fmt"
	"net"
	"syscall"
)

// Binder opens the socket described by a spec
type Binder interface {
	Bind(ctx context.Context, spec SocketSpec) (net.PacketConn, error)
}

// UDPBinder binds real UDP sockets
type UDPBinder struct{}

// NewUDPBinder creates a binder for host UDP sockets
func NewUDPBinder() *UDPBinder {
	return &UDPBinder{}
}

// Bind opens a UDP socket on the spec's address with the requested options
func (b *UDPBinder) Bind(ctx context.Context, spec SocketSpec) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			if !spec.Broadcast {
				return nil
			}
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = setBroadcast(fd)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}

	conn, err := lc.ListenPacket(ctx, "udp4", spec.Addr().String())
	if err != nil {
		return nil, &BindError{Spec: spec, Err: err}
	}
	return conn, nil
}

// BindError reports a failure to bind one socket of the topology
type BindError struct {
	Spec SocketSpec
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s socket on %s: %v", e.Spec.Role, e.Spec.Addr(), e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
