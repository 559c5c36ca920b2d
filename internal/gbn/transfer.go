package gbn

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/1ureka/gbn/internal/protocol"
	"github.com/1ureka/gbn/internal/util"
)

// Send transmits every chunk of src and returns once all of them are
// cumulatively acknowledged. The endpoint stays ESTABLISHED for Close.
//
// At most Window packets are outstanding. A timeout moves to PACKET_LOSS and
// resends every packet in [base, next) in ascending order. An ACK for s is
// accepted only when base <= s < next and advances base to s+1.
func (e *Endpoint) Send(ctx context.Context, src Source) error {
	if e.role != RoleInitiator || e.state != StateEstablished {
		return &PhaseError{Phase: PhaseTransfer, Err: errors.Wrapf(ErrInvalidState, "send as %s in %s", e.role, e.state)}
	}

	total := uint32(src.Len())
	e.base, e.next = 0, 0
	e.observe()

	var (
		stalls   int // consecutive timeouts without base advancing
		deadline time.Time
	)

	for seqLess(e.base, total) {
		switch e.state {
		case StateEstablished:
			for e.next-e.base < uint32(e.window) && seqLess(e.next, total) {
				pkt, err := e.dataPacket(src, e.next)
				if err != nil {
					return e.fail(PhaseTransfer, err)
				}
				if err := e.transmit(&pkt); err != nil {
					return e.fail(PhaseTransfer, err)
				}
				if e.next == e.base {
					deadline = e.deadline()
				}
				e.next++
				e.observe()
			}

			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case errors.Is(err, ErrTimeout):
				e.setState(StatePacketLoss)
			case fatal(err):
				return e.fail(PhaseTransfer, err)
			case err != nil:
				e.discard(&pkt, err)
			case pkt.Kind == protocol.KindACK && seqInWindow(pkt.Seq, e.base, e.next):
				acked := pkt.Seq + 1 - e.base
				util.Stats.AddBytesSent(int(acked) * protocol.PayloadSize)
				e.base = pkt.Seq + 1
				stalls = 0
				if e.base != e.next {
					deadline = e.deadline()
				}
				e.setState(StateRcvdAck)
			case pkt.Kind == protocol.KindACK:
				e.discard(&pkt, errors.Wrapf(ErrUnexpectedSequence, "window [%d, %d)", e.base, e.next))
			case pkt.Kind == protocol.KindSYNACK:
				// The handshake ACK never arrived; repeat it.
				if err := e.retransmit(&e.reply); err != nil {
					return e.fail(PhaseTransfer, err)
				}
			default:
				e.discard(&pkt, ErrUnexpectedKind)
			}

		case StateRcvdAck:
			e.setState(StateEstablished)

		case StatePacketLoss:
			stalls++
			if stalls > e.opts.MaxAttempts {
				return e.fail(PhaseTransfer, ErrAttemptsExhausted)
			}
			e.log.Debugf("timeout, resending window [%d, %d)", e.base, e.next)
			for s := e.base; s != e.next; s++ {
				pkt, err := e.dataPacket(src, s)
				if err != nil {
					return e.fail(PhaseTransfer, err)
				}
				if err := e.retransmit(&pkt); err != nil {
					return e.fail(PhaseTransfer, err)
				}
			}
			deadline = e.deadline()
			e.setState(StateEstablished)
		}
	}

	if e.state != StateEstablished {
		e.setState(StateEstablished)
	}
	e.log.Debugf("all %d chunks acknowledged", total)
	return nil
}

func (e *Endpoint) dataPacket(src Source, seq uint32) (protocol.Packet, error) {
	chunk, err := src.Chunk(int(seq))
	if err != nil {
		return protocol.Packet{}, errors.Wrapf(err, "chunk %d", seq)
	}
	return protocol.New(protocol.KindDATA, seq, 0, chunk), nil
}

// Receive delivers in-order DATA payloads to sink until the initiator sends
// FIN. Each accepted packet is acknowledged with its own sequence; anything
// out of order is answered with a duplicate ACK for the last accepted one.
// The FIN is kept for Close.
func (e *Endpoint) Receive(ctx context.Context, sink Sink) error {
	if e.role != RoleResponder || e.state != StateEstablished {
		return &PhaseError{Phase: PhaseTransfer, Err: errors.Wrapf(ErrInvalidState, "receive as %s in %s", e.role, e.state)}
	}

	idle := 0
	for {
		var pkt protocol.Packet
		if e.pending != nil {
			pkt, e.pending = *e.pending, nil
		} else {
			var err error
			pkt, _, err = e.recv(ctx, e.deadline())
			switch {
			case errors.Is(err, ErrTimeout):
				// The initiator resends every timeout, so a long silence
				// means it is gone.
				idle++
				if idle > e.opts.MaxAttempts {
					return e.fail(PhaseTransfer, ErrAttemptsExhausted)
				}
				continue
			case fatal(err):
				return e.fail(PhaseTransfer, err)
			case err != nil:
				e.discard(&pkt, err)
				continue
			}
		}
		idle = 0

		switch pkt.Kind {
		case protocol.KindFIN:
			e.pending = &pkt
			e.log.Debugf("FIN received after %d chunks", e.expected)
			return nil

		case protocol.KindDATA:
			if pkt.Seq != e.expected {
				e.discard(&pkt, errors.Wrapf(ErrUnexpectedSequence, "expected %d", e.expected))
				ack := protocol.New(protocol.KindACK, e.expected-1, 0, nil)
				if err := e.transmit(&ack); err != nil {
					return e.fail(PhaseTransfer, err)
				}
				continue
			}

			if err := sink.OnChunk(pkt.Seq, pkt.Payload[:]); err != nil {
				return e.fail(PhaseTransfer, errors.Wrapf(err, "deliver chunk %d", pkt.Seq))
			}
			util.Stats.AddBytesRecv(protocol.PayloadSize)
			e.expected++
			e.observe()

			ack := protocol.New(protocol.KindACK, pkt.Seq, 0, nil)
			if err := e.transmit(&ack); err != nil {
				return e.fail(PhaseTransfer, err)
			}

		default:
			e.discard(&pkt, ErrUnexpectedKind)
		}
	}
}
