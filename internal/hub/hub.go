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
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"xaphub/internal/logger"
	"xaphub/internal/netaddr"
	"xaphub/internal/network"
)

// State is a lifecycle state of the hub
type State int

// statusShutdownTimeout bounds the status API shutdown when shutdown_timeout is zero
const statusShutdownTimeout = 5 * time.Second

const (
	StateUninitialized State = iota
	StateStarting
	StateConnected
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateConnected:
		return "connected"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// AddressResolver supplies the default and broadcast IPv4 addresses
type AddressResolver interface {
	DefaultIP() (net.IP, error)
	DefaultBroadcastIP() (net.IP, error)
}

// Hub owns the sockets, client registry and heartbeat timer of one hub
// process. All routing and registry mutation happens on the goroutine
// running Run; socket readers only hand datagrams over.
type Hub struct {
	id       string
	config   *Config
	binder   network.Binder
	resolver AddressResolver
	clock    clock.Clock
	hostname string

	codec     *HeartbeatCodec
	heartbeat []byte
	registry  *ClientRegistry
	peers     *PeerTable
	metrics   *Metrics
	sender    *Sender
	router    *Router
	sockets   *network.SocketSet
	statusAPI *StatusAPIServer

	addrs     network.Addresses
	broadcast *net.UDPAddr
	topology  network.Topology

	events    chan network.Datagram
	fatal     chan error
	done      chan struct{}
	closeOnce sync.Once
	readers   sync.WaitGroup
	ticker    *clock.Ticker

	connected atomic.Bool
	state     State
	startedAt time.Time
	mutex     sync.RWMutex
	logger    zerolog.Logger
}

// Option customizes a Hub
type Option func(*Hub)

// WithBinder replaces the UDP socket binder
func WithBinder(b network.Binder) Option {
	return func(h *Hub) {
		h.binder = b
	}
}

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(h *Hub) {
		h.clock = c
	}
}

// WithResolver replaces interface address discovery
func WithResolver(r AddressResolver) Option {
	return func(h *Hub) {
		h.resolver = r
	}
}

// WithHostname overrides the hostname announced in the hub heartbeat
func WithHostname(name string) Option {
	return func(h *Hub) {
		h.hostname = name
	}
}

// NewHub creates a hub from configuration. Nothing is bound until Start.
func NewHub(config *Config, options ...Option) (*Hub, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	h := &Hub{
		id:     uuid.New().String(),
		config: config,
		events: make(chan network.Datagram, 256),
		fatal:  make(chan error, 1),
		done:   make(chan struct{}),
	}
	for _, option := range options {
		option(h)
	}

	if h.binder == nil {
		h.binder = network.NewUDPBinder()
	}
	if h.resolver == nil {
		h.resolver = netaddr.Resolver{}
	}
	if h.clock == nil {
		h.clock = clock.New()
	}
	if h.hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to get hostname: %w", err)
		}
		h.hostname = hostname
	}

	h.logger = logger.GetLogger("hub").With().Str("hub_id", h.id).Logger()
	h.topology = config.TopologyValue().Resolve()
	h.codec = NewHeartbeatCodec(h.hostname, int(config.HeartbeatInterval/time.Second))
	h.heartbeat = h.codec.BuildHeartbeat(ClassAlive)
	h.registry = NewClientRegistry(h.clock)
	h.peers = NewPeerTable(config.Peers.CacheSize)
	h.metrics = NewMetrics(h.registry)
	h.sender = NewSender(h.logger, h.metrics)
	h.sockets = network.NewSocketSet()

	if config.Status.Enabled {
		h.statusAPI = NewStatusAPIServer(h, config.Status.Listen)
	}

	return h, nil
}

// Start resolves addresses, binds every socket and starts the socket readers.
// The hub becomes connected when the primary receive socket is bound; that
// also sends the first heartbeat and arms the heartbeat timer.
// Any error returned is a *FatalError.
func (h *Hub) Start(ctx context.Context) error {
	h.mutex.Lock()
	if h.state != StateUninitialized {
		h.mutex.Unlock()
		return ErrAlreadyStarted
	}
	h.state = StateStarting
	h.startedAt = h.clock.Now()
	h.mutex.Unlock()

	if err := h.resolveAddresses(); err != nil {
		h.abortStart()
		return err
	}

	h.router = NewRouter(RouterConfig{
		Registry:  h.registry,
		Peers:     h.peers,
		Codec:     h.codec,
		Sender:    h.sender,
		Sockets:   h.sockets,
		Metrics:   h.metrics,
		Clock:     h.clock,
		Connected: h.connected.Load,
		DefaultIP: h.addrs.Default,
		Loopback:  h.addrs.Loopback,
		Broadcast: h.broadcast,
	})

	h.logger.Info().
		Str("topology", h.topology.String()).
		Str("default_ip", h.addrs.Default.String()).
		Str("broadcast_ip", h.addrs.Broadcast.String()).
		Int("port", h.config.Port).
		Str("source", h.codec.Source()).
		Msg("Starting xAP hub")

	plan := network.Plan(h.topology, h.addrs, h.config.Port)
	err := h.sockets.Open(ctx, h.binder, plan, func(s *network.Socket) error {
		return h.onListening(ctx, s)
	})
	if err != nil {
		h.abortStart()
		return h.fatalFromBind(err)
	}

	for _, socket := range h.sockets.Readable() {
		h.readers.Add(1)
		go func(s *network.Socket) {
			defer h.readers.Done()
			s.ReadLoop(h.deliver, h.onSocketError)
		}(socket)
	}

	if h.statusAPI != nil {
		if err := h.statusAPI.Start(); err != nil {
			h.logger.Error().Err(err).Msg("Failed to start status API")
		}
	}

	return nil
}

// resolveAddresses fills in the default and broadcast addresses from config
// or interface discovery
func (h *Hub) resolveAddresses() error {
	defaultIP := net.ParseIP(h.config.DefaultIP)
	if defaultIP == nil {
		ip, err := h.resolver.DefaultIP()
		if err != nil || ip == nil {
			return &FatalError{Op: "resolve default address", Err: errors.Join(ErrNoNetwork, err)}
		}
		defaultIP = ip
	}

	broadcastIP := net.ParseIP(h.config.BroadcastIP)
	if broadcastIP == nil {
		ip, err := h.resolver.DefaultBroadcastIP()
		if err != nil || ip == nil {
			return &FatalError{Op: "resolve broadcast address", Err: errors.Join(ErrNoNetwork, err)}
		}
		broadcastIP = ip
	}

	h.addrs = network.Addresses{
		Loopback:  net.IPv4(127, 0, 0, 1).To4(),
		Default:   defaultIP.To4(),
		Broadcast: broadcastIP.To4(),
	}
	h.broadcast = &net.UDPAddr{IP: h.addrs.Broadcast, Port: h.config.Port}
	return nil
}

// onListening runs after each socket binds
func (h *Hub) onListening(ctx context.Context, s *network.Socket) error {
	if !s.Spec.Primary() {
		return nil
	}

	h.mutex.Lock()
	h.state = StateConnected
	h.mutex.Unlock()
	h.connected.Store(true)

	h.logger.Info().
		Str("address", s.Conn.LocalAddr().String()).
		Msg("Hub connected")

	h.sendHubHeartbeat(ctx)
	h.ticker = h.clock.Ticker(h.config.HeartbeatInterval)
	return nil
}

// abortStart undoes a partial start; any socket already bound is closed
func (h *Hub) abortStart() {
	h.connected.Store(false)
	h.stopTicker()
	h.sockets.CloseAll()

	h.mutex.Lock()
	h.state = StateStopped
	h.mutex.Unlock()
}

func (h *Hub) fatalFromBind(err error) error {
	var bindErr *network.BindError
	if !errors.As(err, &bindErr) {
		return &FatalError{Op: "start", Err: err}
	}

	fatal := &FatalError{
		Op:   "bind " + string(bindErr.Spec.Role) + " socket",
		Addr: bindErr.Spec.IP.String(),
		Port: bindErr.Spec.Port,
		Err:  err,
	}
	if network.IsAddrInUse(err) {
		fatal.Err = fmt.Errorf("%w: %w", ErrAddressInUse, err)
	}
	return fatal
}

// deliver hands a datagram from a reader goroutine to the event loop
func (h *Hub) deliver(d network.Datagram) {
	select {
	case h.events <- d:
	case <-h.done:
	}
}

// onSocketError reports a read failure as fatal
func (h *Hub) onSocketError(s *network.Socket, err error) {
	fatal := &FatalError{
		Op:   "socket " + string(s.Spec.Role),
		Addr: s.Spec.Addr().String(),
		Err:  err,
	}
	select {
	case h.fatal <- fatal:
	default:
	}
}

func (h *Hub) tickerC() <-chan time.Time {
	if h.ticker == nil {
		return nil
	}
	return h.ticker.C
}

func (h *Hub) stopTicker() {
	if h.ticker != nil {
		h.ticker.Stop()
	}
}

// Run processes datagrams and heartbeat ticks until ctx is cancelled, then
// runs the stop sequence and closes the sockets. It returns a *FatalError if
// a socket fails while running.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case d := <-h.events:
			h.router.Route(d)

		case <-h.tickerC():
			h.sendHubHeartbeat(ctx)

		case err := <-h.fatal:
			h.logger.Error().Err(err).Msg("Socket error")
			h.Close()
			return err

		case <-ctx.Done():
			stopCtx, cancel := h.stopContext()
			err := h.Stop(stopCtx)
			cancel()
			h.Close()
			return err
		}
	}
}

// stopContext bounds the stop sequence by shutdown_timeout; zero means every
// send is awaited for as long as it takes
func (h *Hub) stopContext() (context.Context, context.CancelFunc) {
	if h.config.ShutdownTimeout > 0 {
		return context.WithTimeout(context.Background(), h.config.ShutdownTimeout)
	}
	return context.WithCancel(context.Background())
}

// sendHubHeartbeat sends the current hub heartbeat to the network
func (h *Hub) sendHubHeartbeat(ctx context.Context) error {
	err := h.sender.SendAwait(ctx, h.sockets.Transmit(), h.heartbeat, h.broadcast, TARGET_NETWORK)
	if err == nil {
		h.metrics.HeartbeatsSent.WithLabelValues(h.heartbeatClass()).Inc()
		h.logger.Debug().Str("to", h.broadcast.String()).Msg("Hub heartbeat sent")
	}
	return err
}

func (h *Hub) heartbeatClass() string {
	if h.State() >= StateStopping {
		return string(ClassStopped)
	}
	return string(ClassAlive)
}

// Stop announces the hub is going away: a stopped heartbeat to the network,
// then one to each active client in registration order, each send awaited
// before the next. It only acts on a connected hub; later calls are no-ops.
func (h *Hub) Stop(ctx context.Context) error {
	h.mutex.Lock()
	if h.state != StateConnected {
		h.mutex.Unlock()
		return nil
	}
	h.state = StateStopping
	h.mutex.Unlock()

	h.connected.Store(false)
	h.stopTicker()

	h.logger.Info().Msg("Stopping xAP hub")

	h.heartbeat = h.codec.BuildHeartbeat(ClassStopped)
	h.sendHubHeartbeat(ctx)

	client := h.sockets.Client()
	for _, entry := range h.registry.Active() {
		addr := &net.UDPAddr{IP: h.addrs.Loopback, Port: entry.Port}
		if err := h.sender.SendAwait(ctx, client, h.heartbeat, addr, TARGET_CLIENT); err != nil {
			continue
		}
		h.logger.Debug().Int("port", entry.Port).Msg("Client told hub stopped")
	}

	h.mutex.Lock()
	h.state = StateStopped
	h.mutex.Unlock()

	h.logger.Info().Msg("xAP hub stopped")
	return nil
}

// Close releases the sockets and the status API and waits for the socket
// readers to exit. It does not announce anything; call Stop first.
func (h *Hub) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.connected.Store(false)
		h.stopTicker()
		close(h.done)

		if h.statusAPI != nil {
			timeout := h.config.ShutdownTimeout
			if timeout <= 0 {
				timeout = statusShutdownTimeout
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			if stopErr := h.statusAPI.Stop(shutdownCtx); stopErr != nil {
				h.logger.Error().Err(stopErr).Msg("Error stopping status API")
			}
			cancel()
		}

		err = h.sockets.CloseAll()
		h.readers.Wait()

		h.mutex.Lock()
		if h.state != StateStopped {
			h.state = StateStopped
		}
		h.mutex.Unlock()
	})
	return err
}

// ID returns the unique id of this hub instance
func (h *Hub) ID() string {
	return h.id
}

// State returns the lifecycle state
func (h *Hub) State() State {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.state
}

// IsConnected reports whether received datagrams are being processed
func (h *Hub) IsConnected() bool {
	return h.connected.Load()
}

// Registry returns the client registry
func (h *Hub) Registry() *ClientRegistry {
	return h.registry
}

// Peers returns the remote peer table
func (h *Hub) Peers() *PeerTable {
	return h.peers
}

// Metrics returns the hub's prometheus collectors
func (h *Hub) Metrics() *Metrics {
	return h.metrics
}

// GetStatus returns the current status of the hub
func (h *Hub) GetStatus() map[string]interface{} {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	status := map[string]interface{}{
		"id":             h.id,
		"state":          h.state.String(),
		"connected":      h.connected.Load(),
		"source":         h.codec.Source(),
		"topology":       h.topology.String(),
		"port":           h.config.Port,
		"active_clients": h.registry.ActiveCount(),
		"clients":        h.registry.Len(),
		"peers":          h.peers.Len(),
	}
	if !h.startedAt.IsZero() {
		status["started_at"] = h.startedAt.UTC().Format(time.RFC3339)
		status["uptime_seconds"] = int64(h.clock.Since(h.startedAt) / time.Second)
	}
	if h.addrs.Default != nil {
		status["default_ip"] = h.addrs.Default.String()
		status["broadcast_ip"] = h.addrs.Broadcast.String()
	}
	return status
}
