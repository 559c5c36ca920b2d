package protocol

import (
	"encoding/binary"

	"github.com/google/netstack/tcpip/header"
)

// sumInputSize is u16(kind) + u32(seq) + payload.
const sumInputSize = 2 + 4 + PayloadSize

// Checksum computes the 16-bit one's-complement checksum of a packet.
//
// The summed buffer is the big-endian concatenation of the kind widened to
// 16 bits, the 32-bit sequence number and the raw payload. Window and the
// checksum field itself are not covered. An odd trailing byte is added as the
// low byte of a partial word; with the current layout the buffer is always
// even.
func Checksum(p *Packet) uint16 {
	var buf [sumInputSize]byte
	binary.BigEndian.PutUint16(buf[0:2], uint16(p.Kind))
	binary.BigEndian.PutUint32(buf[2:6], p.Seq)
	copy(buf[6:], p.Payload[:])
	return ^sum16(buf[:])
}

// sum16 returns the folded, uncomplemented one's-complement sum of b.
func sum16(b []byte) uint16 {
	even := len(b) &^ 1
	s := header.Checksum(b[:even], 0)
	if even != len(b) {
		s = header.ChecksumCombine(s, uint16(b[even]))
	}
	return s
}
