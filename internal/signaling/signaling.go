// Package signaling runs the WebSocket rendezvous that sets up a WebRTC
// datagram transport between two peers. All WebSocket and SDP/ICE details are
// internal; callers receive a Transport whose DataChannel is open.
package signaling

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/pterm/pterm"

	"github.com/1ureka/gbn/internal/transport"
	"github.com/1ureka/gbn/internal/util"
)

var _ session = (*transport.Transport)(nil)

// EstablishAsHost executes the full host-side signaling flow:
//  1. Start a WS server on wsAddr and print its port and PIN
//  2. Wait for the client to connect
//  3. Create a Transport and send the Offer
//  4. Exchange the Answer and ICE candidates
//  5. Return once the DataChannel is open; the WS server is closed
func EstablishAsHost(ctx context.Context, wsAddr string) (*transport.Transport, error) {
	pin := generatePIN(pinLength)
	srv := newServer(pin)
	wsPort, err := srv.start(wsAddr)
	if err != nil {
		return nil, err
	}
	defer srv.close()

	pterm.DefaultBox.WithTitle("WebSocket Signaling").Println(
		fmt.Sprintf("Port : %d\nPIN  : %s\nURL  : ws://<host>:%d/ws?pin=%s", wsPort, pin, wsPort, pin))
	util.LogInfo("waiting for peer to connect...")

	wsConn, err := srv.waitForClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for client: %w", err)
	}
	defer wsConn.Close()
	util.LogInfo("peer connected to signaling server")

	return exchange(ctx, wsConn, true)
}

// EstablishAsClient executes the full client-side signaling flow:
//  1. Connect to the host's WS server (wsURL carries the PIN)
//  2. Create a Transport, wait for the Offer and answer it
//  3. Exchange ICE candidates
//  4. Return once the DataChannel is open; the WS connection is closed
func EstablishAsClient(ctx context.Context, wsURL string) (*transport.Transport, error) {
	util.LogInfo("connecting to signaling server...")
	wsConn, err := connect(ctx, wsURL)
	if err != nil {
		return nil, err
	}
	defer wsConn.Close()
	util.LogDebug("WS connected: %s", wsURL)

	return exchange(ctx, wsConn, false)
}

// exchange creates the Transport and runs SDP/ICE over wsConn until the
// DataChannel opens. The offering side sends the Offer first.
func exchange(ctx context.Context, wsConn *websocket.Conn, offer bool) (*transport.Transport, error) {
	tr, err := transport.NewTransport(ctx, util.LoggerFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to create Transport: %w", err)
	}

	s := &sender{tr: tr, conn: wsConn}
	r := &receiver{
		tr:      tr,
		conn:    wsConn,
		sender:  s,
		offerer: offer,
		log:     util.LoggerFactory.NewLogger("signaling"),
	}

	tr.OnICECandidate(func(c *webrtc.ICECandidate) {
		if err := s.sendCandidate(c); err != nil {
			util.LogDebug("failed to forward ICE candidate: %v", err)
		}
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.watch() // exits when wsConn is closed by the caller
	}()

	if offer {
		if err := s.sendOffer(); err != nil {
			tr.Close()
			return nil, fmt.Errorf("failed to send Offer: %w", err)
		}
	}

	select {
	case <-tr.Ready():
		util.LogSuccess("WebRTC DataChannel established, closing WS")
		return tr, nil

	case err := <-errCh:
		tr.Close()
		return nil, fmt.Errorf("signaling failed: %w", err)

	case <-ctx.Done():
		tr.Close()
		return nil, ctx.Err()
	}
}
