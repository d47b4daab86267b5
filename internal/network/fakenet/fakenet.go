// Package fakenet provides in-memory packet conns and a binder for tests of
// code built on the network package.
package fakenet

import (
	"context"
	"net"
	"sync"
	"time"

	"xaphub/internal/network"
)

// Write is one datagram sent through a Conn
type Write struct {
	Data []byte
	Addr *net.UDPAddr
}

type packet struct {
	data []byte
	from *net.UDPAddr
}

// Conn is an in-memory net.PacketConn
type Conn struct {
	local   *net.UDPAddr
	inbound chan packet
	done    chan struct{}

	mutex     sync.Mutex
	writes    []Write
	closeOnce sync.Once

	// WriteErr, if set, decides the error returned for a write to addr
	WriteErr func(addr *net.UDPAddr) error
	// OnWrite, if set, runs before each write is recorded
	OnWrite func(addr *net.UDPAddr)
	// Recorder, if set, also receives every successful write
	Recorder *Recorder
}

// NewConn creates a conn reporting local as its bound address
func NewConn(local *net.UDPAddr) *Conn {
	return &Conn{
		local:   local,
		inbound: make(chan packet, 64),
		done:    make(chan struct{}),
	}
}

// Inject queues a datagram to be returned by ReadFrom
func (c *Conn) Inject(data []byte, from *net.UDPAddr) {
	select {
	case c.inbound <- packet{data: data, from: from}:
	case <-c.done:
	}
}

// Writes returns a copy of every datagram written so far
func (c *Conn) Writes() []Write {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	out := make([]Write, len(c.writes))
	copy(out, c.writes)
	return out
}

// Closed reports whether Close has been called
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ReadFrom blocks until a datagram is injected or the conn is closed
func (c *Conn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case pkt := <-c.inbound:
		n := copy(p, pkt.data)
		return n, pkt.from, nil
	case <-c.done:
		return 0, nil, net.ErrClosed
	}
}

// WriteTo records the datagram
func (c *Conn) WriteTo(p []byte, addr net.Addr) (int, error) {
	if c.Closed() {
		return 0, net.ErrClosed
	}
	udpAddr, _ := addr.(*net.UDPAddr)
	if c.OnWrite != nil {
		c.OnWrite(udpAddr)
	}
	if c.WriteErr != nil {
		if err := c.WriteErr(udpAddr); err != nil {
			return 0, err
		}
	}

	data := make([]byte, len(p))
	copy(data, p)
	w := Write{Data: data, Addr: udpAddr}

	c.mutex.Lock()
	c.writes = append(c.writes, w)
	c.mutex.Unlock()

	if c.Recorder != nil {
		c.Recorder.record(c, w)
	}
	return len(p), nil
}

// Close unblocks readers and rejects further writes
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Conn) LocalAddr() net.Addr                { return c.local }
func (c *Conn) SetDeadline(t time.Time) error      { return nil }
func (c *Conn) SetReadDeadline(t time.Time) error  { return nil }
func (c *Conn) SetWriteDeadline(t time.Time) error { return nil }

// Recorder collects writes across several conns in global order
type Recorder struct {
	mutex  sync.Mutex
	writes []RecordedWrite
}

// RecordedWrite is a write tagged with the conn it went through
type RecordedWrite struct {
	Conn *Conn
	Write
}

func (r *Recorder) record(c *Conn, w Write) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.writes = append(r.writes, RecordedWrite{Conn: c, Write: w})
}

// Writes returns every recorded write in order
func (r *Recorder) Writes() []RecordedWrite {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make([]RecordedWrite, len(r.writes))
	copy(out, r.writes)
	return out
}

// Binder hands out Conns and can be told to fail specific roles
type Binder struct {
	mutex    sync.Mutex
	conns    map[network.Role]*Conn
	specs    []network.SocketSpec
	failures map[network.Role]error
	recorder *Recorder
}

// NewBinder creates a binder; every conn it creates reports to recorder when non-nil
func NewBinder(recorder *Recorder) *Binder {
	return &Binder{
		conns:    make(map[network.Role]*Conn),
		failures: make(map[network.Role]error),
		recorder: recorder,
	}
}

// Fail makes the bind for role return err
func (b *Binder) Fail(role network.Role, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.failures[role] = err
}

// Bind returns a new in-memory conn for the spec
func (b *Binder) Bind(_ context.Context, spec network.SocketSpec) (net.PacketConn, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err, ok := b.failures[spec.Role]; ok {
		return nil, &network.BindError{Spec: spec, Err: err}
	}

	local := spec.Addr()
	if local.Port == 0 {
		local.Port = 49152 + len(b.specs)
	}
	conn := NewConn(local)
	conn.Recorder = b.recorder
	b.conns[spec.Role] = conn
	b.specs = append(b.specs, spec)
	return conn, nil
}

// Conn returns the conn bound for role, or nil
func (b *Binder) Conn(role network.Role) *Conn {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.conns[role]
}

// Specs returns the specs bound so far, in order
func (b *Binder) Specs() []network.SocketSpec {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	out := make([]network.SocketSpec, len(b.specs))
	copy(out, b.specs)
	return out
}
