package transport

import (
	"context"
	"net"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

const (
	highWaterMark  = 256 * 1024 // pause sending when bufferedAmount exceeds this
	lowWaterMark   = 64 * 1024  // resume sending when bufferedAmount drops below this
	sendBufferSize = 64         // outgoing datagram channel capacity
)

// sender is a goroutine-based datagram writer that serializes all writes to
// a single DataChannel, adding open-gate and backpressure control.
type sender struct {
	ctx         context.Context
	inbox       chan []byte
	drainSignal chan struct{}
	log         logging.LeveledLogger
}

// newSender creates a sender, wires the backpressure callbacks on dc, and
// starts the background loop. The loop exits when ctx is cancelled.
func newSender(ctx context.Context, dc *webrtc.DataChannel, openSignal <-chan struct{}, log logging.LeveledLogger) *sender {
	s := &sender{
		ctx:         ctx,
		inbox:       make(chan []byte, sendBufferSize),
		drainSignal: make(chan struct{}, 1),
		log:         log,
	}

	dc.SetBufferedAmountLowThreshold(uint64(lowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case s.drainSignal <- struct{}{}:
		default:
		}
	})

	go s.loop(dc, openSignal)

	return s
}

// loop is the single-writer goroutine. It waits for the DataChannel to open,
// then drains the inbox with backpressure awareness.
func (s *sender) loop(dc *webrtc.DataChannel, openSignal <-chan struct{}) {
	select {
	case <-openSignal:
	case <-s.ctx.Done():
		return
	}

	for {
		select {
		case data := <-s.inbox:
			if dc.BufferedAmount() > uint64(highWaterMark) {
				select {
				case <-s.drainSignal:
				case <-s.ctx.Done():
					return
				}
			}

			if err := dc.Send(data); err != nil {
				s.log.Errorf("failed to send datagram (%d bytes): %v", len(data), err)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// send enqueues a copy of data. It blocks while the queue is full and fails
// once the transport is shut down.
func (s *sender) send(data []byte) error {
	select {
	case s.inbox <- append([]byte(nil), data...):
		return nil
	case <-s.ctx.Done():
		return net.ErrClosed
	}
}
