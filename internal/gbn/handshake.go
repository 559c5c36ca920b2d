package gbn

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/1ureka/gbn/internal/protocol"
)

// Connect runs the initiator side of the three-way handshake:
//
//	CLOSED -> WAIT_SYN_ACK -> RCVD_SYN_ACK -> ESTABLISHED
//
// After sending the final ACK the initiator lingers one timeout in
// ESTABLISHED; a repeated SYN_ACK in that period means the ACK was lost and
// it is sent again.
func (e *Endpoint) Connect(ctx context.Context) error {
	if e.role != RoleInitiator || e.state != StateClosed {
		return &PhaseError{Phase: PhaseHandshake, Err: errors.Wrapf(ErrInvalidState, "connect as %s in %s", e.role, e.state)}
	}

	syn := protocol.New(protocol.KindSYN, e.opts.InitialSequence(), uint16(e.opts.WindowSize), nil)
	var (
		synSent  int
		ackSent  int
		deadline time.Time
	)

	for {
		switch e.state {
		case StateClosed:
			if synSent == e.opts.MaxAttempts {
				return e.fail(PhaseHandshake, ErrAttemptsExhausted)
			}
			var err error
			if synSent == 0 {
				err = e.transmit(&syn)
			} else {
				err = e.retransmit(&syn)
			}
			if err != nil {
				return e.fail(PhaseHandshake, err)
			}
			synSent++
			deadline = e.deadline()
			e.setState(StateWaitSynAck)

		case StateWaitSynAck:
			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case fatal(err):
				return e.fail(PhaseHandshake, err)
			case err == nil && pkt.Kind == protocol.KindSYNACK && pkt.Seq == syn.Seq+1:
				if w := int(pkt.Window); w > 0 && w < e.window {
					e.window = w
				}
				e.reply = protocol.New(protocol.KindACK, pkt.Seq+1, 0, nil)
				e.setState(StateRcvdSynAck)
			default:
				// Anything else, including silence, restarts with a new SYN.
				if err == nil {
					e.discard(&pkt, errors.Wrapf(ErrUnexpectedKind, "want SYN_ACK for %d", syn.Seq))
				} else {
					e.discard(&pkt, err)
				}
				e.setState(StateClosed)
			}

		case StateRcvdSynAck:
			if ackSent == e.opts.MaxAttempts {
				return e.fail(PhaseHandshake, ErrAttemptsExhausted)
			}
			var err error
			if ackSent == 0 {
				err = e.transmit(&e.reply)
			} else {
				err = e.retransmit(&e.reply)
			}
			if err != nil {
				return e.fail(PhaseHandshake, err)
			}
			ackSent++
			deadline = e.deadline()
			e.setState(StateEstablished)

		case StateEstablished:
			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case errors.Is(err, ErrTimeout):
				e.log.Infof("connection established with %s [%016x], window %d",
					e.peer, e.peerKey, e.window)
				return nil
			case fatal(err):
				return e.fail(PhaseHandshake, err)
			case err == nil && pkt.Kind == protocol.KindSYNACK:
				e.setState(StateRcvdSynAck)
			default:
				e.discard(&pkt, err)
			}
		}
	}
}

// Accept runs the responder side of the three-way handshake:
//
//	LISTENING -> RCVD_SYN -> WAIT_ACK -> ESTABLISHED
//
// Invalid or unexpected packets are discarded without leaving the current
// state. A valid DATA or FIN in WAIT_ACK proves the initiator finished the
// handshake, so it completes Accept and is kept for Receive or Close.
func (e *Endpoint) Accept(ctx context.Context) error {
	if e.role != RoleResponder || e.state != StateListening {
		return &PhaseError{Phase: PhaseHandshake, Err: errors.Wrapf(ErrInvalidState, "accept as %s in %s", e.role, e.state)}
	}

	var (
		replySent int
		deadline  time.Time
	)

	for {
		switch e.state {
		case StateListening:
			pkt, from, err := e.recv(ctx, e.deadline())
			switch {
			case errors.Is(err, ErrTimeout):
				// Listening has no attempt limit; the context bounds it.
			case fatal(err):
				return e.fail(PhaseHandshake, err)
			case err == nil && pkt.Kind == protocol.KindSYN:
				e.setPeer(from)
				if w := int(pkt.Window); w > 0 {
					e.window = w
				}
				e.reply = protocol.New(protocol.KindSYNACK, pkt.Seq+1, uint16(e.window), nil)
				e.log.Debugf("SYN %d from %s, window %d", pkt.Seq, from, e.window)
				e.setState(StateRcvdSyn)
			default:
				e.discard(&pkt, err)
			}

		case StateRcvdSyn:
			if replySent == e.opts.MaxAttempts {
				return e.fail(PhaseHandshake, ErrAttemptsExhausted)
			}
			var err error
			if replySent == 0 {
				err = e.transmit(&e.reply)
			} else {
				err = e.retransmit(&e.reply)
			}
			if err != nil {
				return e.fail(PhaseHandshake, err)
			}
			replySent++
			deadline = e.deadline()
			e.setState(StateWaitAck)

		case StateWaitAck:
			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case errors.Is(err, ErrTimeout):
				e.setState(StateRcvdSyn)
			case fatal(err):
				return e.fail(PhaseHandshake, err)
			case err != nil:
				e.discard(&pkt, err)
			case pkt.Kind == protocol.KindACK && pkt.Seq == e.reply.Seq+1:
				e.established()
				return nil
			case pkt.Kind == protocol.KindDATA || pkt.Kind == protocol.KindFIN:
				e.log.Debugf("%s before handshake ACK, treating as implicit ACK", pkt.Kind)
				e.pending = &pkt
				e.established()
				return nil
			case pkt.Kind == protocol.KindSYN && pkt.Seq+1 == e.reply.Seq:
				// Our SYN_ACK was lost; answer the repeated SYN now.
				e.setState(StateRcvdSyn)
			case pkt.Kind == protocol.KindACK:
				e.discard(&pkt, ErrUnexpectedSequence)
			default:
				e.discard(&pkt, ErrUnexpectedKind)
			}
		}
	}
}

func (e *Endpoint) established() {
	e.setState(StateEstablished)
	e.log.Infof("connection established with %s [%016x], window %d",
		e.peer, e.peerKey, e.window)
}
