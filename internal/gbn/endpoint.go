// Package gbn implements a Go-Back-N reliable transport over an unreliable
// datagram socket: a three-way handshake, sliding-window data transfer with
// cumulative acknowledgements, and a four-way teardown.
//
// An Endpoint is driven by one goroutine. Every operation blocks at a single
// bounded wait point until a packet arrives, the per-state deadline passes,
// or the context is cancelled.
package gbn

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/pkg/errors"

	"github.com/1ureka/gbn/internal/channel"
	"github.com/1ureka/gbn/internal/impair"
	"github.com/1ureka/gbn/internal/protocol"
	"github.com/1ureka/gbn/internal/util"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultWindowSize  = 4
	DefaultMaxAttempts = 10

	// MaxWindowSize bounds the announced window to what SYN can carry.
	MaxWindowSize = 1<<16 - 1

	// The initial handshake sequence is drawn from [MinISN, MaxISN].
	MinISN = 5
	MaxISN = 99

	// The initiator's WAIT_TIME lasts this many timeouts.
	waitTimeFactor = 2

	// Large enough for any datagram; oversized ones fail Decode.
	readBufferSize = 64 * 1024
)

var isnSource = randutil.NewMathRandomGenerator()

// Options tunes an Endpoint. Zero fields take the defaults.
type Options struct {
	Timeout     time.Duration
	WindowSize  int
	MaxAttempts int

	// InitialSequence returns the SYN sequence number. Nil draws from
	// [MinISN, MaxISN].
	InitialSequence func() uint32

	// Logger receives the trace channel. Nil uses util.LoggerFactory.
	Logger logging.LeveledLogger

	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.WindowSize > MaxWindowSize {
		o.WindowSize = MaxWindowSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.InitialSequence == nil {
		o.InitialSequence = func() uint32 {
			return uint32(MinISN + isnSource.Intn(MaxISN-MinISN+1))
		}
	}
	return o
}

// Endpoint is one side of a connection.
type Endpoint struct {
	id   uuid.UUID
	role Role
	conn channel.Conn
	peer net.Addr
	shim *impair.Shim
	opts Options
	log  logging.LeveledLogger

	// normalized identity of peer; datagrams from other keys are dropped
	peerKey uint64

	state  State
	window int

	// initiator send window
	base uint32
	next uint32

	// responder
	expected uint32

	// last control packet, resent when its answer is lost
	reply protocol.Packet
	// packet read by one phase that belongs to the next
	pending *protocol.Packet

	rbuf []byte
}

// NewInitiator creates the connecting side. peer is where SYN is sent.
func NewInitiator(conn channel.Conn, peer net.Addr, shim *impair.Shim, opts Options) *Endpoint {
	e := newEndpoint(RoleInitiator, conn, shim, opts)
	e.setPeer(peer)
	e.state = StateClosed
	return e
}

// NewResponder creates the listening side. It locks onto the address of the
// first valid SYN.
func NewResponder(conn channel.Conn, shim *impair.Shim, opts Options) *Endpoint {
	e := newEndpoint(RoleResponder, conn, shim, opts)
	e.state = StateListening
	return e
}

func newEndpoint(role Role, conn channel.Conn, shim *impair.Shim, opts Options) *Endpoint {
	if shim == nil {
		shim = impair.NewShim(nil)
	}
	opts = opts.withDefaults()

	id := uuid.New()
	log := opts.Logger
	if log == nil {
		log = util.LoggerFactory.NewLogger("gbn " + role.String() + " " + id.String()[:8])
	}

	return &Endpoint{
		id:     id,
		role:   role,
		conn:   conn,
		shim:   shim,
		opts:   opts,
		log:    log,
		window: opts.WindowSize,
		rbuf:   make([]byte, readBufferSize),
	}
}

// ID identifies the endpoint in logs.
func (e *Endpoint) ID() uuid.UUID { return e.id }

// Role returns the fixed role.
func (e *Endpoint) Role() Role { return e.role }

// State returns the current connection state.
func (e *Endpoint) State() State { return e.state }

// Peer returns the remote address, nil for a responder before the handshake.
func (e *Endpoint) Peer() net.Addr { return e.peer }

func (e *Endpoint) setPeer(addr net.Addr) {
	e.peer = addr
	e.peerKey = util.PeerKey(addr)
}

// Window returns the negotiated window size.
func (e *Endpoint) Window() int { return e.window }

func (e *Endpoint) snapshot() Snapshot {
	return Snapshot{
		Role:     e.role,
		State:    e.state,
		Base:     e.base,
		Next:     e.next,
		Expected: e.expected,
		Window:   e.window,
	}
}

func (e *Endpoint) observe() {
	if e.opts.Observer != nil {
		e.opts.Observer.Observe(e.snapshot())
	}
}

func (e *Endpoint) setState(s State) {
	if e.state != s {
		e.log.Tracef("%s -> %s", e.state, s)
	}
	e.state = s
	e.observe()
}

// fail ends the connection with a fatal error.
func (e *Endpoint) fail(phase Phase, err error) error {
	e.log.Debugf("%s failed in %s: %v", phase, e.state, err)
	e.state = StateClosed
	e.observe()
	return &PhaseError{Phase: phase, Err: err}
}

func (e *Endpoint) deadline() time.Time {
	return time.Now().Add(e.opts.Timeout)
}

// transmit sends pkt through the impairment shim to the peer.
func (e *Endpoint) transmit(pkt *protocol.Packet) error {
	if _, err := e.shim.Transmit(e.conn, pkt, e.peer); err != nil {
		return transportError("send", err)
	}
	e.log.Tracef("sent %s", pkt)
	return nil
}

// retransmit is transmit for a packet already sent once.
func (e *Endpoint) retransmit(pkt *protocol.Packet) error {
	util.Stats.AddRetransmit()
	e.log.Debugf("retransmitting %s", pkt)
	return e.transmit(pkt)
}

// recv is the single wait point. It returns a valid packet, ErrTimeout once
// deadline passes, ErrChecksumMismatch for a datagram that fails decoding or
// the checksum, the context error on cancellation, or a TransportError.
// Datagrams from an address other than the locked peer are skipped without
// returning.
func (e *Endpoint) recv(ctx context.Context, deadline time.Time) (protocol.Packet, net.Addr, error) {
	var pkt protocol.Packet

	if err := ctx.Err(); err != nil {
		return pkt, nil, err
	}
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := e.conn.SetReadDeadline(deadline); err != nil {
		return pkt, nil, transportError("set deadline", err)
	}
	// Cancellation unblocks the pending read immediately.
	stop := context.AfterFunc(ctx, func() {
		_ = e.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	for {
		n, from, err := e.conn.ReadFrom(e.rbuf)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return pkt, nil, ctxErr
			}
			if channel.IsTimeout(err) {
				util.Stats.AddTimeout()
				return pkt, nil, ErrTimeout
			}
			return pkt, nil, transportError("receive", err)
		}

		if e.peer != nil && from != nil && util.PeerKey(from) != e.peerKey {
			util.Stats.AddDiscarded()
			e.log.Tracef("discarding datagram from %s", from)
			continue
		}

		pkt, err = protocol.Decode(e.rbuf[:n])
		if err != nil {
			util.Stats.AddDiscarded()
			return pkt, from, errors.Wrap(ErrChecksumMismatch, err.Error())
		}
		if !pkt.Valid() {
			util.Stats.AddDiscarded()
			return pkt, from, ErrChecksumMismatch
		}
		e.log.Tracef("received %s", &pkt)
		return pkt, from, nil
	}
}

// discard logs a non-fatal receive outcome the current state has no use
// for: a timeout, a corrupted datagram, or a valid but unexpected packet.
func (e *Endpoint) discard(pkt *protocol.Packet, err error) {
	if err == nil {
		err = ErrUnexpectedKind
	}
	if errors.Is(err, ErrTimeout) {
		e.log.Debugf("%s: timeout", e.state)
		return
	}
	if errors.Is(err, ErrChecksumMismatch) {
		e.log.Tracef("%s: discarding corrupted packet", e.state)
		return
	}
	util.Stats.AddDiscarded()
	e.log.Tracef("%s: discarding %s: %v", e.state, pkt, err)
}
