package transport

import (
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// STUN servers for ICE candidate gathering. No TURN; the datagram path is
// meant to be direct peer-to-peer.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// newPeerConnection creates a PeerConnection configured with Google STUN
// servers. pion's internal logging goes through factory.
func newPeerConnection(factory logging.LoggerFactory) (*webrtc.PeerConnection, error) {
	settings := webrtc.SettingEngine{LoggerFactory: factory}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settings))

	return api.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: stunServers},
		},
	})
}

// newDataChannel creates a pre-negotiated DataChannel with UDP-like
// semantics: unordered and never retransmitted by SCTP. Go-Back-N above it
// is the only reliability layer. Negotiated mode (ID 0) lets both sides
// create the channel without relying on OnDataChannel.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := false
	negotiated := true
	maxRetransmits := uint16(0)
	id := uint16(0)

	return pc.CreateDataChannel("gbn", &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
		Negotiated:     &negotiated,
		ID:             &id,
	})
}
