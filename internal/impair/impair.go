// Package impair sits between the protocol engine and the datagram socket
// and simulates an unreliable network by dropping or corrupting outbound
// datagrams.
package impair

import (
	"fmt"
	"math/rand/v2"
	"net"
	"sync"

	"github.com/1ureka/gbn/internal/protocol"
	"github.com/1ureka/gbn/internal/util"
)

// Verdict is the fate of one outbound datagram.
type Verdict struct {
	Drop    bool
	Corrupt bool
	Offset  int   // byte to alter when Corrupt
	Bit     uint8 // bit within that byte, 0..7
}

// Policy decides the fate of each outbound datagram. size is the encoded
// length, so a corrupt verdict's Offset must fall within [0, size).
type Policy interface {
	Decide(pkt *protocol.Packet, size int) Verdict
}

// PolicyFunc adapts a function to Policy. Tests use it to script exact
// losses.
type PolicyFunc func(pkt *protocol.Packet, size int) Verdict

func (f PolicyFunc) Decide(pkt *protocol.Packet, size int) Verdict { return f(pkt, size) }

// Passthrough never impairs anything.
var Passthrough Policy = PolicyFunc(func(*protocol.Packet, int) Verdict { return Verdict{} })

// Random drops each datagram with probability loss and otherwise corrupts it
// with probability corrupt, flipping the low bit of a uniformly chosen byte.
// It is safe for concurrent use.
type Random struct {
	loss    float64
	corrupt float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a seeded random policy. A zero seed draws one from the
// runtime source.
func NewRandom(loss, corrupt float64, seed uint64) *Random {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Random{
		loss:    loss,
		corrupt: corrupt,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (r *Random) Decide(_ *protocol.Packet, size int) Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rng.Float64() < r.loss {
		return Verdict{Drop: true}
	}
	if size > 0 && r.rng.Float64() < r.corrupt {
		return Verdict{Corrupt: true, Offset: r.rng.IntN(size)}
	}
	return Verdict{}
}

// Writer is the send half of a datagram socket.
type Writer interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}

// SendError reports a failed write on the underlying socket.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("send failed: %v", e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

// Shim applies a Policy to every datagram on its way to the socket.
type Shim struct {
	policy Policy
}

// NewShim wraps policy. A nil policy means Passthrough.
func NewShim(policy Policy) *Shim {
	if policy == nil {
		policy = Passthrough
	}
	return &Shim{policy: policy}
}

// Transmit encodes pkt and hands it to w unless the policy drops it.
// A dropped datagram still reports the full length as sent; the sender
// cannot tell a drop apart from network loss.
func (s *Shim) Transmit(w Writer, pkt *protocol.Packet, to net.Addr) (int, error) {
	wire := protocol.Encode(pkt)

	v := s.policy.Decide(pkt, len(wire))
	if v.Drop {
		util.Stats.AddDropped()
		util.LogTrace("impair: dropped %s", pkt)
		return len(wire), nil
	}
	if v.Corrupt {
		wire[v.Offset%len(wire)] ^= 1 << (v.Bit & 7)
		util.Stats.AddCorrupted()
		util.LogTrace("impair: corrupted %s at byte %d", pkt, v.Offset%len(wire))
	}

	n, err := w.WriteTo(wire, to)
	if err != nil {
		return n, &SendError{Err: err}
	}
	util.Stats.AddSent()
	return n, nil
}
