// Package protocol defines the fixed-layout GBN packet, its wire codec and
// its integrity checksum.
package protocol

import "fmt"

// Kind identifies the single purpose of a packet. Kinds are never combined.
type Kind uint8

// Packet kind constants. Zero is reserved so an all-zero datagram is never a
// well-formed packet.
const (
	KindSYN    Kind = 0x01 // connection request, carries the announced window
	KindSYNACK Kind = 0x02 // connection reply, echoes the window
	KindACK    Kind = 0x03 // handshake/teardown confirmation or cumulative data ack
	KindDATA   Kind = 0x04 // one application chunk
	KindFIN    Kind = 0x05 // close request
	KindFINACK Kind = 0x06 // close reply
)

func (k Kind) String() string {
	switch k {
	case KindSYN:
		return "SYN"
	case KindSYNACK:
		return "SYN_ACK"
	case KindACK:
		return "ACK"
	case KindDATA:
		return "DATA"
	case KindFIN:
		return "FIN"
	case KindFINACK:
		return "FIN_ACK"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Wire layout: Kind(1) + Seq(4) + Window(2) + Checksum(2) + Payload(PayloadSize).
const (
	HeaderSize  = 9
	PayloadSize = 512
	Size        = HeaderSize + PayloadSize

	offKind     = 0
	offSeq      = 1
	offWindow   = 5
	offChecksum = 7
	offPayload  = 9
)

// Packet is the wire unit. It is a plain value: copying it copies the payload.
type Packet struct {
	Kind     Kind
	Seq      uint32
	Window   uint16 // meaningful on SYN and SYN_ACK only
	Checksum uint16
	Payload  [PayloadSize]byte
}

// New builds a packet and seals its checksum. A payload longer than
// PayloadSize is truncated; a shorter one is zero-padded.
func New(kind Kind, seq uint32, window uint16, payload []byte) Packet {
	p := Packet{
		Kind:   kind,
		Seq:    seq,
		Window: window,
	}
	copy(p.Payload[:], payload)
	p.Checksum = Checksum(&p)
	return p
}

// Valid reports whether the stored checksum matches the recomputed one.
func (p *Packet) Valid() bool {
	return p.Checksum == Checksum(p)
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s(seq=%d, win=%d, sum=%04x)", p.Kind, p.Seq, p.Window, p.Checksum)
}
