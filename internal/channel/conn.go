// Package channel defines the datagram boundary the protocol engine runs
// over, plus in-memory and UDP implementations of it.
package channel

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/pion/transport/v4/packetio"
)

// Conn is the minimal unreliable datagram socket the engine requires: send to
// an address, receive one datagram, and bound the receive with a deadline.
// *net.UDPConn satisfies it.
type Conn interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
	ReadFrom(p []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// IsTimeout reports whether err is a read deadline expiry rather than a real
// transport failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, packetio.ErrTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// timeoutError implements net.Error for read deadline expiry.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

// Addr is a named net.Addr for channels that have no IP address of their own.
type Addr string

func (a Addr) Network() string { return "mem" }
func (a Addr) String() string  { return string(a) }
