package signaling

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T, pin string) (*server, int) {
	t.Helper()
	srv := newServer(pin)
	port, err := srv.start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.close)
	return srv, port
}

func TestGeneratePIN(t *testing.T) {
	for i := 0; i < 20; i++ {
		pin := generatePIN(pinLength)
		if len(pin) != pinLength {
			t.Fatalf("len(%q) = %d, want %d", pin, len(pin), pinLength)
		}
		if strings.Trim(pin, "0123456789") != "" {
			t.Fatalf("PIN %q contains non-digits", pin)
		}
	}
}

func TestServerRejectsWrongPIN(t *testing.T) {
	_, port := startTestServer(t, "123456")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := connect(ctx, fmt.Sprintf("ws://127.0.0.1:%d/ws?pin=000000", port))
	if err == nil || !strings.Contains(err.Error(), "invalid PIN") {
		t.Fatalf("expected invalid PIN error, got %v", err)
	}
}

func TestServerAcceptsFirstClientOnly(t *testing.T) {
	srv, port := startTestServer(t, "424242")
	url := fmt.Sprintf("ws://127.0.0.1:%d/ws?pin=424242", port)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := connect(ctx, url)
	if err != nil {
		t.Fatalf("first connect: %v", err)
	}
	defer first.Close()

	hostSide, err := srv.waitForClient(ctx)
	if err != nil {
		t.Fatalf("waitForClient: %v", err)
	}
	defer hostSide.Close()

	second, err := connect(ctx, url)
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}
	defer second.Close()

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = second.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Errorf("expected policy violation close, got %v", err)
	}
}

func TestMessageRoundTripOverWS(t *testing.T) {
	srv, port := startTestServer(t, "1111")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := connect(ctx, fmt.Sprintf("ws://127.0.0.1:%d/ws?pin=1111", port))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	hostSide, err := srv.waitForClient(ctx)
	if err != nil {
		t.Fatalf("waitForClient: %v", err)
	}
	defer hostSide.Close()

	s := &sender{conn: client}
	if err := s.send(message{Type: msgTypeCandidate, Candidate: `{"candidate":"x"}`}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var got message
	if err := hostSide.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != msgTypeCandidate || got.Candidate != `{"candidate":"x"}` || got.SDP != "" {
		t.Errorf("got %+v", got)
	}
}

func TestWaitForClientCancelled(t *testing.T) {
	srv, _ := startTestServer(t, "1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := srv.waitForClient(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
