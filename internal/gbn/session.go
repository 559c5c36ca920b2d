package gbn

import (
	"context"
	"net"

	"github.com/1ureka/gbn/internal/channel"
	"github.com/1ureka/gbn/internal/impair"
)

// Dial connects to peer, sends src and closes the connection.
func Dial(ctx context.Context, conn channel.Conn, peer net.Addr, shim *impair.Shim, opts Options, src Source) error {
	e := NewInitiator(conn, peer, shim, opts)
	if err := e.Connect(ctx); err != nil {
		return err
	}
	if err := e.Send(ctx, src); err != nil {
		return err
	}
	return e.Close(ctx)
}

// Serve accepts one connection on conn, delivers its data to sink and
// completes the teardown. It returns the peer's address.
func Serve(ctx context.Context, conn channel.Conn, shim *impair.Shim, opts Options, sink Sink) (net.Addr, error) {
	e := NewResponder(conn, shim, opts)
	if err := e.Accept(ctx); err != nil {
		return nil, err
	}
	if err := e.Receive(ctx, sink); err != nil {
		return e.Peer(), err
	}
	return e.Peer(), e.Close(ctx)
}
