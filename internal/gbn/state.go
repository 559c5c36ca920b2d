package gbn

import "fmt"

// Role is fixed at construction: the initiator connects and sends data, the
// responder listens and receives it.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// State is the connection state shared by the handshake, transfer and
// teardown machines.
type State int

const (
	StateClosed State = iota
	StateListening
	StateWaitSynAck
	StateRcvdSynAck
	StateRcvdSyn
	StateWaitAck
	StateEstablished
	StatePacketLoss
	StateRcvdAck
	StateWaitFinAck
	StateRcvdFinAck
	StateRcvdFin
	StateWaitTime
)

var stateNames = [...]string{
	StateClosed:      "CLOSED",
	StateListening:   "LISTENING",
	StateWaitSynAck:  "WAIT_SYN_ACK",
	StateRcvdSynAck:  "RCVD_SYN_ACK",
	StateRcvdSyn:     "RCVD_SYN",
	StateWaitAck:     "WAIT_ACK",
	StateEstablished: "ESTABLISHED",
	StatePacketLoss:  "PACKET_LOSS",
	StateRcvdAck:     "RCVD_ACK",
	StateWaitFinAck:  "WAIT_FIN_ACK",
	StateRcvdFinAck:  "RCVD_FIN_ACK",
	StateRcvdFin:     "RCVD_FIN",
	StateWaitTime:    "WAIT_TIME",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is the externally visible part of an endpoint, handed to an
// Observer after every transition and every DATA transmission.
type Snapshot struct {
	Role     Role
	State    State
	Base     uint32 // oldest unacknowledged sequence (initiator)
	Next     uint32 // next sequence to assign (initiator)
	Expected uint32 // next in-order sequence (responder)
	Window   int
}

// Observer receives snapshots synchronously on the engine goroutine.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }
