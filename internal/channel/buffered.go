package channel

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/pion/transport/v4/packetio"
)

// Buffered adapts a push-style message source (a DataChannel callback, the
// other end of a Pipe) to the pull-style Conn interface. Inbound datagrams
// are queued in a packetio.Buffer, which provides the read deadline.
type Buffered struct {
	buf    *packetio.Buffer
	local  net.Addr
	remote net.Addr
	send   func([]byte) error
}

// NewBuffered creates a Buffered conn. send is invoked for every WriteTo; the
// destination address is ignored because the link is point-to-point.
func NewBuffered(local, remote net.Addr, send func([]byte) error) *Buffered {
	return &Buffered{
		buf:    packetio.NewBuffer(),
		local:  local,
		remote: remote,
		send:   send,
	}
}

// Push queues one inbound datagram. The bytes are copied.
func (b *Buffered) Push(p []byte) error {
	_, err := b.buf.Write(p)
	return err
}

// WriteTo implements Conn.
func (b *Buffered) WriteTo(p []byte, _ net.Addr) (int, error) {
	if err := b.send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ReadFrom implements Conn. Every datagram is reported as coming from the
// single remote address.
func (b *Buffered) ReadFrom(p []byte) (int, net.Addr, error) {
	n, err := b.buf.Read(p)
	if err != nil {
		if errors.Is(err, packetio.ErrTimeout) {
			return 0, nil, &timeoutError{}
		}
		if errors.Is(err, io.EOF) {
			return 0, nil, net.ErrClosed
		}
		return 0, nil, err
	}
	return n, b.remote, nil
}

// SetReadDeadline implements Conn.
func (b *Buffered) SetReadDeadline(t time.Time) error {
	return b.buf.SetReadDeadline(t)
}

// LocalAddr implements Conn.
func (b *Buffered) LocalAddr() net.Addr { return b.local }

// RemoteAddr returns the fixed peer address.
func (b *Buffered) RemoteAddr() net.Addr { return b.remote }

// Close releases the queue; pending and future reads fail.
func (b *Buffered) Close() error {
	return b.buf.Close()
}
