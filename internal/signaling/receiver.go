package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// session is the SDP/ICE surface of a transport.Transport that signaling
// drives.
type session interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
}

// receiver applies inbound signaling messages to a session. The offering
// side accepts only an answer; the other side only an offer. Candidates
// that arrive before the remote description are held until it is set.
type receiver struct {
	tr      session
	conn    *websocket.Conn
	sender  *sender
	offerer bool
	log     logging.LeveledLogger

	remoteSet bool
	queued    []webrtc.ICECandidateInit
}

// watch reads messages until the WebSocket fails or is closed, or a message
// cannot be applied.
func (r *receiver) watch() error {
	for {
		var msg message
		if err := r.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read WS message: %w", err)
		}
		if err := r.handle(msg); err != nil {
			return err
		}
	}
}

func (r *receiver) handle(msg message) error {
	switch msg.Type {
	case msgTypeOffer:
		if r.offerer {
			return fmt.Errorf("unexpected offer from a peer that should answer")
		}
		if err := r.setRemote(webrtc.SDPTypeOffer, msg.SDP); err != nil {
			return err
		}
		return r.sender.sendAnswer()

	case msgTypeAnswer:
		if !r.offerer {
			return fmt.Errorf("unexpected answer: no offer was sent")
		}
		return r.setRemote(webrtc.SDPTypeAnswer, msg.SDP)

	case msgTypeCandidate:
		var init webrtc.ICECandidateInit
		if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
			return fmt.Errorf("failed to parse ICE candidate: %w", err)
		}
		if !r.remoteSet {
			r.log.Debugf("holding ICE candidate until the remote description arrives")
			r.queued = append(r.queued, init)
			return nil
		}
		if err := r.tr.AddICECandidate(init); err != nil {
			return fmt.Errorf("failed to add ICE candidate: %w", err)
		}
		return nil

	default:
		r.log.Warnf("ignoring signaling message of type %q", msg.Type)
		return nil
	}
}

// setRemote applies the peer's description, then any candidates held back
// while it was missing.
func (r *receiver) setRemote(typ webrtc.SDPType, sdp string) error {
	if r.remoteSet {
		return fmt.Errorf("duplicate %s", typ)
	}
	if err := r.tr.SetRemoteDescription(webrtc.SessionDescription{Type: typ, SDP: sdp}); err != nil {
		return fmt.Errorf("failed to apply remote %s: %w", typ, err)
	}
	r.remoteSet = true
	r.log.Debugf("remote %s applied, %d held candidates", typ, len(r.queued))

	for _, c := range r.queued {
		if err := r.tr.AddICECandidate(c); err != nil {
			return fmt.Errorf("failed to add ICE candidate: %w", err)
		}
	}
	r.queued = nil
	return nil
}
