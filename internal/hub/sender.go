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
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// Send targets, used as metric labels
const (
	TARGET_NETWORK = "network"
	TARGET_CLIENT  = "client"
)

var errNoSocket = errors.New("socket not bound")

// Sender performs datagram sends. SendBestEffort is used for routine
// forwarding, SendAwait where the caller must know the send finished before
// moving on.
type Sender struct {
	logger  zerolog.Logger
	metrics *Metrics
}

// NewSender creates a sender that logs and counts failures
func NewSender(log zerolog.Logger, metrics *Metrics) *Sender {
	return &Sender{logger: log, metrics: metrics}
}

// SendBestEffort writes data to addr and only logs a failure
func (s *Sender) SendBestEffort(conn net.PacketConn, data []byte, addr *net.UDPAddr, target string) {
	if err := s.write(conn, data, addr); err != nil {
		s.failed(err, addr, target)
	}
}

// SendAwait writes data to addr and waits for the write to complete or ctx
// to end, whichever comes first
func (s *Sender) SendAwait(ctx context.Context, conn net.PacketConn, data []byte, addr *net.UDPAddr, target string) error {
	result := make(chan error, 1)
	go func() {
		result <- s.write(conn, data, addr)
	}()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = fmt.Errorf("send to %s abandoned: %w", addr, ctx.Err())
	}
	if err != nil {
		s.failed(err, addr, target)
	}
	return err
}

func (s *Sender) write(conn net.PacketConn, data []byte, addr *net.UDPAddr) error {
	if conn == nil {
		return errNoSocket
	}
	_, err := conn.WriteTo(data, addr)
	return err
}

func (s *Sender) failed(err error, addr *net.UDPAddr, target string) {
	if s.metrics != nil {
		s.metrics.SendErrors.WithLabelValues(target).Inc()
	}
	s.logger.Warn().
		Err(err).
		Str("target", target).
		Str("address", addr.String()).
		Msg("Send failed")
}
