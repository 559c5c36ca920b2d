package protocol

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes a Packet into its fixed-size wire form.
func Encode(pkt *Packet) []byte {
	buf := make([]byte, Size)
	buf[offKind] = byte(pkt.Kind)
	binary.BigEndian.PutUint32(buf[offSeq:offWindow], pkt.Seq)
	binary.BigEndian.PutUint16(buf[offWindow:offChecksum], pkt.Window)
	binary.BigEndian.PutUint16(buf[offChecksum:offPayload], pkt.Checksum)
	copy(buf[offPayload:], pkt.Payload[:])
	return buf
}

// Decode deserializes a datagram into a Packet. It only checks the length;
// integrity is the caller's business (see Packet.Valid).
func Decode(data []byte) (Packet, error) {
	var pkt Packet
	if len(data) != Size {
		return pkt, fmt.Errorf("bad packet length: %d bytes (need exactly %d)", len(data), Size)
	}
	pkt.Kind = Kind(data[offKind])
	pkt.Seq = binary.BigEndian.Uint32(data[offSeq:offWindow])
	pkt.Window = binary.BigEndian.Uint16(data[offWindow:offChecksum])
	pkt.Checksum = binary.BigEndian.Uint16(data[offChecksum:offPayload])
	copy(pkt.Payload[:], data[offPayload:])
	return pkt, nil
}
