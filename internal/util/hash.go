package util

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"net/netip"

	"github.com/dchest/siphash"
)

// peerKey is a per-process SipHash key, so peer keys are stable within one run
// but not predictable across runs.
var peerKey0, peerKey1 = newPeerKey()

func newPeerKey() (uint64, uint64) {
	var k [16]byte
	if _, err := rand.Read(k[:]); err != nil {
		return 0, 0
	}
	return binary.LittleEndian.Uint64(k[:8]), binary.LittleEndian.Uint64(k[8:])
}

var localHost = netip.AddrFrom4([4]byte{127, 0, 0, 1})

// PeerKey identifies a remote endpoint. UDP addresses are normalized first:
// IPv4-mapped IPv6 forms are unmapped, and the unspecified and loopback
// addresses all collapse to 127.0.0.1, so ":9000", "[::1]:9000" and
// "127.0.0.1:9000" share one key. Other address types hash their network and
// string form. A nil address has key 0.
func PeerKey(addr net.Addr) uint64 {
	if addr == nil {
		return 0
	}
	if u, ok := addr.(*net.UDPAddr); ok && u != nil {
		ap := u.AddrPort()
		ip := ap.Addr().Unmap()
		if !ip.IsValid() || ip.IsUnspecified() || ip.IsLoopback() {
			ip = localHost
		}
		b, _ := netip.AddrPortFrom(ip, ap.Port()).MarshalBinary()
		return siphash.Hash(peerKey0, peerKey1, append([]byte("udp|"), b...))
	}
	b := append([]byte(addr.Network()), '|')
	b = append(b, addr.String()...)
	return siphash.Hash(peerKey0, peerKey1, b)
}

// SamePeer reports whether a and b name the same remote endpoint.
func SamePeer(a, b net.Addr) bool {
	return PeerKey(a) == PeerKey(b)
}
