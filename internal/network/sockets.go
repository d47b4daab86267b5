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
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"xaphub/internal/logger"
)

// maxDatagram is the largest UDP payload we read
const maxDatagram = 65535

// Socket is one bound socket of the topology
type Socket struct {
	Spec SocketSpec
	Conn net.PacketConn
}

// Datagram is a packet received on one of the sockets
type Datagram struct {
	Role Role
	Data []byte
	From *net.UDPAddr
}

// SocketSet owns the sockets of a topology. Only the owner opens and closes
// them; everyone else just sends through the conns it hands out.
type SocketSet struct {
	sockets map[Role]*Socket
	order   []Role
	logger  zerolog.Logger
	mutex   sync.RWMutex
	closed  bool
}

// NewSocketSet creates an empty socket set
func NewSocketSet() *SocketSet {
	return &SocketSet{
		sockets: make(map[Role]*Socket),
		logger:  logger.GetLogger("network.sockets"),
	}
}

// Open binds every socket of the plan in order. onListening is called after
// each successful bind; an error from it aborts the remaining binds.
// Sockets bound before a failure stay open so the caller can close them.
func (s *SocketSet) Open(ctx context.Context, binder Binder, plan []SocketSpec, onListening func(*Socket) error) error {
	for _, spec := range plan {
		conn, err := binder.Bind(ctx, spec)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("role", string(spec.Role)).
				Str("address", spec.Addr().String()).
				Msg("Failed to bind socket")
			return err
		}

		socket := &Socket{Spec: spec, Conn: conn}

		s.mutex.Lock()
		if _, exists := s.sockets[spec.Role]; exists {
			s.mutex.Unlock()
			conn.Close()
			return fmt.Errorf("socket role %s bound twice", spec.Role)
		}
		s.sockets[spec.Role] = socket
		s.order = append(s.order, spec.Role)
		s.mutex.Unlock()

		s.logger.Info().
			Str("role", string(spec.Role)).
			Str("address", conn.LocalAddr().String()).
			Msg("Socket bound")

		if onListening != nil {
			if err := onListening(socket); err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the socket bound for a role
func (s *SocketSet) Get(role Role) (*Socket, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	socket, ok := s.sockets[role]
	return socket, ok
}

// Client returns the loopback socket local clients talk to
func (s *SocketSet) Client() net.PacketConn {
	if socket, ok := s.Get(RoleClient); ok {
		return socket.Conn
	}
	return nil
}

// Transmit returns the socket used for sends onto the network: the
// dedicated transmit socket, or the receive socket that doubles as one.
func (s *SocketSet) Transmit() net.PacketConn {
	if socket, ok := s.Get(RoleTx); ok {
		return socket.Conn
	}
	if socket, ok := s.Get(RoleRx); ok && socket.Spec.Transmit {
		return socket.Conn
	}
	return nil
}

// Readable returns the sockets datagrams arrive on, in bind order.
// The dedicated transmit socket is excluded.
func (s *SocketSet) Readable() []*Socket {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]*Socket, 0, len(s.order))
	for _, role := range s.order {
		if role == RoleTx {
			continue
		}
		result = append(result, s.sockets[role])
	}
	return result
}

// CloseAll closes every socket once; later calls are no-ops
func (s *SocketSet) CloseAll() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.order) - 1; i >= 0; i-- {
		socket := s.sockets[s.order[i]]
		if err := socket.Conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close %s socket: %w", socket.Spec.Role, err))
		}
	}
	return errors.Join(errs...)
}

// ReadLoop reads datagrams from the socket until it is closed.
// Each datagram is passed to deliver with its own buffer. A read error other
// than the socket being closed is passed to onError and ends the loop.
func (sock *Socket) ReadLoop(deliver func(Datagram), onError func(*Socket, error)) {
	buffer := make([]byte, maxDatagram)

	for {
		n, addr, err := sock.Conn.ReadFrom(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if onError != nil {
				onError(sock, err)
			}
			return
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		from, _ := addr.(*net.UDPAddr)
		deliver(Datagram{Role: sock.Spec.Role, Data: data, From: from})
	}
}
