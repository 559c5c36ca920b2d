package gbn

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/1ureka/gbn/internal/protocol"
)

// Close runs the four-way teardown for the endpoint's role and leaves it
// CLOSED. It does not close the underlying conn.
//
// Initiator: ESTABLISHED -> WAIT_FIN_ACK -> RCVD_FIN_ACK -> WAIT_TIME -> CLOSED.
// Responder: ESTABLISHED -> RCVD_FIN -> WAIT_TIME -> CLOSED.
func (e *Endpoint) Close(ctx context.Context) error {
	if e.state != StateEstablished {
		return &PhaseError{Phase: PhaseTeardown, Err: errors.Wrapf(ErrInvalidState, "close as %s in %s", e.role, e.state)}
	}
	if e.role == RoleInitiator {
		return e.closeInitiator(ctx)
	}
	return e.closeResponder(ctx)
}

func (e *Endpoint) closeInitiator(ctx context.Context) error {
	fin := protocol.New(protocol.KindFIN, e.next, 0, nil)
	var (
		finSent  int
		ackSent  int
		deadline time.Time
	)

	for {
		switch e.state {
		case StateEstablished:
			if finSent == e.opts.MaxAttempts {
				return e.fail(PhaseTeardown, ErrAttemptsExhausted)
			}
			var err error
			if finSent == 0 {
				err = e.transmit(&fin)
			} else {
				err = e.retransmit(&fin)
			}
			if err != nil {
				return e.fail(PhaseTeardown, err)
			}
			finSent++
			deadline = e.deadline()
			e.setState(StateWaitFinAck)

		case StateWaitFinAck:
			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case fatal(err):
				return e.fail(PhaseTeardown, err)
			case err == nil && pkt.Kind == protocol.KindFINACK && pkt.Seq == fin.Seq+1:
				e.reply = protocol.New(protocol.KindACK, pkt.Seq+1, 0, nil)
				e.setState(StateRcvdFinAck)
			default:
				if err == nil {
					e.discard(&pkt, errors.Wrapf(ErrUnexpectedKind, "want FIN_ACK for %d", fin.Seq))
				} else {
					e.discard(&pkt, err)
				}
				e.setState(StateEstablished)
			}

		case StateRcvdFinAck:
			if ackSent == e.opts.MaxAttempts {
				return e.fail(PhaseTeardown, ErrAttemptsExhausted)
			}
			var err error
			if ackSent == 0 {
				err = e.transmit(&e.reply)
			} else {
				err = e.retransmit(&e.reply)
			}
			if err != nil {
				return e.fail(PhaseTeardown, err)
			}
			ackSent++
			// Outlast the responder's FIN_ACK retransmission, which fires one
			// Timeout after its own send.
			deadline = time.Now().Add(waitTimeFactor * e.opts.Timeout)
			e.setState(StateWaitTime)

		case StateWaitTime:
			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case errors.Is(err, ErrTimeout):
				e.setState(StateClosed)
				e.log.Infof("connection to %s closed", e.peer)
				return nil
			case fatal(err):
				return e.fail(PhaseTeardown, err)
			case err == nil && pkt.Kind == protocol.KindFINACK:
				// The final ACK was lost.
				e.setState(StateRcvdFinAck)
			default:
				e.discard(&pkt, err)
			}
		}
	}
}

func (e *Endpoint) closeResponder(ctx context.Context) error {
	var (
		replySent int
		idle      int
		deadline  time.Time
	)

	for {
		switch e.state {
		case StateEstablished:
			var pkt protocol.Packet
			if e.pending != nil {
				pkt, e.pending = *e.pending, nil
			} else {
				var err error
				pkt, _, err = e.recv(ctx, e.deadline())
				switch {
				case errors.Is(err, ErrTimeout):
					idle++
					if idle > e.opts.MaxAttempts {
						return e.fail(PhaseTeardown, ErrAttemptsExhausted)
					}
					continue
				case fatal(err):
					return e.fail(PhaseTeardown, err)
				case err != nil:
					e.discard(&pkt, err)
					continue
				}
			}
			if pkt.Kind != protocol.KindFIN {
				e.discard(&pkt, errors.Wrap(ErrUnexpectedKind, "want FIN"))
				continue
			}
			e.reply = protocol.New(protocol.KindFINACK, pkt.Seq+1, 0, nil)
			e.setState(StateRcvdFin)

		case StateRcvdFin:
			if replySent == e.opts.MaxAttempts {
				return e.fail(PhaseTeardown, ErrAttemptsExhausted)
			}
			var err error
			if replySent == 0 {
				err = e.transmit(&e.reply)
			} else {
				err = e.retransmit(&e.reply)
			}
			if err != nil {
				return e.fail(PhaseTeardown, err)
			}
			replySent++
			deadline = e.deadline()
			e.setState(StateWaitTime)

		case StateWaitTime:
			pkt, _, err := e.recv(ctx, deadline)
			switch {
			case errors.Is(err, ErrTimeout):
				e.setState(StateRcvdFin)
			case fatal(err):
				return e.fail(PhaseTeardown, err)
			case err != nil:
				e.discard(&pkt, err)
			case pkt.Kind == protocol.KindACK && pkt.Seq == e.reply.Seq+1:
				e.setState(StateClosed)
				e.log.Infof("connection from %s closed", e.peer)
				return nil
			case pkt.Kind == protocol.KindFIN:
				// Our FIN_ACK was lost.
				e.setState(StateRcvdFin)
			default:
				e.discard(&pkt, ErrUnexpectedKind)
			}
		}
	}
}
