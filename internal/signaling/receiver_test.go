package signaling

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/gbn/internal/util"
)

// fakeSession records the order of SDP/ICE calls.
type fakeSession struct {
	calls []string
}

func (f *fakeSession) CreateOffer() (webrtc.SessionDescription, error) {
	f.calls = append(f.calls, "create-offer")
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (f *fakeSession) CreateAnswer() (webrtc.SessionDescription, error) {
	f.calls = append(f.calls, "create-answer")
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (f *fakeSession) SetLocalDescription(d webrtc.SessionDescription) error {
	f.calls = append(f.calls, "local-"+d.Type.String())
	return nil
}

func (f *fakeSession) SetRemoteDescription(d webrtc.SessionDescription) error {
	f.calls = append(f.calls, "remote-"+d.Type.String()+":"+d.SDP)
	return nil
}

func (f *fakeSession) AddICECandidate(c webrtc.ICECandidateInit) error {
	f.calls = append(f.calls, "candidate:"+c.Candidate)
	return nil
}

// wsPair returns the client and host ends of one signaling connection.
func wsPair(t *testing.T) (client, host *websocket.Conn) {
	t.Helper()
	srv, port := startTestServer(t, "2468")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := connect(ctx, fmt.Sprintf("ws://127.0.0.1:%d/ws?pin=2468", port))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	host, err = srv.waitForClient(ctx)
	if err != nil {
		t.Fatalf("waitForClient: %v", err)
	}
	t.Cleanup(func() { host.Close() })
	return client, host
}

func newTestReceiver(tr session, conn *websocket.Conn, offerer bool) *receiver {
	return &receiver{
		tr:      tr,
		conn:    conn,
		sender:  &sender{tr: tr, conn: conn},
		offerer: offerer,
		log:     util.LoggerFactory.NewLogger("signaling"),
	}
}

func TestReceiverHoldsEarlyCandidates(t *testing.T) {
	client, host := wsPair(t)
	fake := &fakeSession{}
	r := newTestReceiver(fake, client, false)

	msgs := []message{
		{Type: msgTypeCandidate, Candidate: `{"candidate":"early"}`},
		{Type: msgTypeOffer, SDP: "offer-sdp"},
		{Type: msgTypeCandidate, Candidate: `{"candidate":"late"}`},
	}
	for _, msg := range msgs {
		if err := r.handle(msg); err != nil {
			t.Fatalf("handle %s: %v", msg.Type, err)
		}
	}

	want := []string{
		"remote-offer:offer-sdp",
		"candidate:early",
		"create-answer",
		"local-answer",
		"candidate:late",
	}
	if got := strings.Join(fake.calls, ","); got != strings.Join(want, ",") {
		t.Errorf("calls = %s\nwant    %s", got, strings.Join(want, ","))
	}

	_ = host.SetReadDeadline(time.Now().Add(2 * time.Second))
	var answer message
	if err := host.ReadJSON(&answer); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if answer.Type != msgTypeAnswer || answer.SDP != "answer-sdp" {
		t.Errorf("answer = %+v", answer)
	}
}

func TestReceiverRejectsWrongDescription(t *testing.T) {
	testCases := []struct {
		name    string
		offerer bool
		msgs    []message
		want    string
	}{
		{"offer to offerer", true, []message{{Type: msgTypeOffer, SDP: "x"}}, "unexpected offer"},
		{"answer to answerer", false, []message{{Type: msgTypeAnswer, SDP: "x"}}, "unexpected answer"},
		{"second answer", true, []message{{Type: msgTypeAnswer, SDP: "x"}, {Type: msgTypeAnswer, SDP: "y"}}, "duplicate answer"},
		{"bad candidate", true, []message{{Type: msgTypeCandidate, Candidate: "{"}}, "failed to parse ICE candidate"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestReceiver(&fakeSession{}, nil, tc.offerer)
			var err error
			for _, msg := range tc.msgs {
				if err = r.handle(msg); err != nil {
					break
				}
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("got %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestReceiverIgnoresUnknownType(t *testing.T) {
	fake := &fakeSession{}
	r := newTestReceiver(fake, nil, true)
	if err := r.handle(message{Type: "bye"}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("unexpected calls %v", fake.calls)
	}
}

func TestWatchStopsOnUnexpectedOffer(t *testing.T) {
	client, host := wsPair(t)
	r := newTestReceiver(&fakeSession{}, host, true)

	errc := make(chan error, 1)
	go func() { errc <- r.watch() }()

	if err := client.WriteJSON(message{Type: msgTypeOffer, SDP: "x"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	select {
	case err := <-errc:
		if err == nil || !strings.Contains(err.Error(), "unexpected offer") {
			t.Errorf("watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
